package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/timvw/iorepl/internal/config"
)

var captureCmd = &cobra.Command{
	Use:   "capture <pane>",
	Short: "Print the visible content of a pane",
	Long: `Print the visible content of one pane of the iorepl session without
attaching to it.

<pane> is a pane index (0-5) of the iorepl session, or any full tmux
target such as "iorepl_tmux:0.4".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		target := args[0]
		if i, err := strconv.Atoi(target); err == nil {
			target = m.PaneTarget(config.DefaultLayout().Session, i)
		}

		content, err := m.CapturePane(cmd.Context(), target)
		if err != nil {
			return fmt.Errorf("failed to capture pane %q: %w", target, err)
		}

		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
