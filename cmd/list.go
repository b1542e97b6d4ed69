package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/iorepl/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the panes of the running iorepl session",
	Long: `List the panes of the running iorepl session.

Each line is a pane target, the pid of the pane's shell and the command
currently running in it. A pane still running its shell did not receive
its command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		session := config.DefaultLayout().Session
		panes, err := m.ListPanes(cmd.Context(), session)
		if err != nil {
			return fmt.Errorf("failed to list panes of %s: %w", session, err)
		}

		for _, p := range panes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", p.Target, p.PID, p.Command)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
