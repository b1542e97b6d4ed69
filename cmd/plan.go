package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/timvw/iorepl/internal/config"
	"github.com/timvw/iorepl/internal/layout"
	"github.com/timvw/iorepl/internal/mux"
)

var planCmd = &cobra.Command{
	Use:   "plan <run_id>",
	Short: "Show the pane grid and the tmux commands without running them",
	Long: `Print the pane grid and every tmux control command iorepl would run for
<run_id>, in order, with how each command's exit status is treated:

  best_effort  run once, status ignored
  retry        re-sent until tmux exits 0
  checked      run once, nonzero status aborts

Nothing is executed and the log files are not checked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("argument is no valid integer: %q", args[0])
		}

		l := config.DefaultLayout()
		logFiles := l.LogFiles(runID)
		steps := layout.Plan(l, mux.NewTmux(l.Multiplexer), logFiles)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headingStyle.Render("Panes of "+l.Session))
		fmt.Fprintln(out, renderGrid(layout.PaneLabels(l, logFiles)))
		fmt.Fprintln(out)
		fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Steps (%d)", len(steps))))
		for i, s := range steps {
			fmt.Fprintf(out, "%2d  %s\n", i+1, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	paneStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	paneIndexStyle = lipgloss.NewStyle().Faint(true)
)

// renderGrid draws the 3x2 pane grid with every cell the same width.
func renderGrid(labels [layout.PaneCount]string) string {
	width := 0
	cells := make([]string, len(labels))
	for i, label := range labels {
		cells[i] = paneIndexStyle.Render(strconv.Itoa(i)) + " " + label
		width = max(width, lipgloss.Width(cells[i]))
	}

	style := paneStyle.Width(width + paneStyle.GetHorizontalPadding())
	row := func(from int) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			style.Render(cells[from]),
			style.Render(cells[from+1]),
			style.Render(cells[from+2]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, row(0), row(3))
}
