package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/iorepl/internal/config"
	"github.com/timvw/iorepl/internal/mux"
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Destroy the iorepl session",
	Long: `Destroy the iorepl session and everything running in its panes.

Same as pressing Enter in pane 3, or "tmux kill-session -t iorepl_tmux".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := config.DefaultLayout()
		argv := mux.NewTmux(l.Multiplexer).KillSession(l.Session)

		status, err := newRunner().Run(cmd.Context(), argv[0], argv[1:]...)
		if err != nil {
			return fmt.Errorf("tmux kill-session: %w", err)
		}
		if status != 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "no %s session running\n", l.Session)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}
