// Package layout builds the six-pane iorepl session as an ordered list of
// steps and runs them.
//
// The pane grid, once every split has landed:
//
//	0 | 1 | 2      tail -f <log>  x3
//	3 | 4 | 5      quit | netcat <port> x2
package layout

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/iorepl/internal/config"
	"github.com/timvw/iorepl/internal/mux"
)

// Mode says how a step's exit status is treated.
type Mode int

const (
	// BestEffort runs the command once and ignores its exit status.
	BestEffort Mode = iota
	// Retry re-runs the command until it exits with the step's Target.
	Retry
	// Checked runs the command once; a nonzero exit status is an error.
	Checked
)

func (m Mode) String() string {
	switch m {
	case BestEffort:
		return "best_effort"
	case Retry:
		return "retry"
	case Checked:
		return "checked"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Step is one control command of the layout sequence.
type Step struct {
	Name string
	Argv []string
	Mode Mode
	// Target is the exit status a Retry step waits for.
	Target int
	// Delay is the pause after the step. Retry steps already pause after
	// every attempt and usually leave it zero.
	Delay time.Duration
}

func (s Step) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %-11s ", s.Name, s.Mode)
	for i, a := range s.Argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		if a == "" || strings.ContainsAny(a, " \t\"'$") {
			a = strconv.Quote(a)
		}
		b.WriteString(a)
	}
	if s.Delay > 0 {
		fmt.Fprintf(&b, "  (+%s)", s.Delay)
	}
	return b.String()
}

// Pane indexes of the finished grid.
const (
	PaneLog1 = iota
	PaneLog2
	PaneLog3
	PaneQuit
	PaneInput1
	PaneInput2

	PaneCount
)

// split is one pane division: which pane is split, along which axis, and
// the size of the new pane in percent.
type split struct {
	pane       int
	horizontal bool
	percent    int
}

// Plan returns the full step sequence for a session whose log panes tail
// logFiles. The last step attaches the operator's terminal and blocks until
// they detach or the session ends.
func Plan(l config.Layout, m mux.Multiplexer, logFiles [3]string) []Step {
	s := l.Session
	pane := func(i int) string { return m.PaneTarget(s, i) }
	retryStep := func(name, target, line string) Step {
		return Step{Name: name, Argv: m.SendKeys(target, line, true), Mode: Retry, Target: 0}
	}
	splits := 0
	splitStep := func(sp split) Step {
		splits++
		name := fmt.Sprintf("split-%d", splits)
		return retryStep(name, pane(sp.pane), m.SplitWindowLine(sp.horizontal, sp.percent))
	}

	steps := []Step{
		{Name: "kill-session", Argv: m.KillSession(s), Mode: BestEffort, Delay: l.SettleDelay},
		{Name: "new-session", Argv: m.NewSession(s), Mode: BestEffort, Delay: l.SettleDelay},

		// 0
		// 1
		splitStep(split{pane: 0, horizontal: false, percent: 50}),
		retryStep("select-0", s, m.SelectPaneLine(0)),
		// 0 | 1
		//   2
		splitStep(split{pane: 0, horizontal: true, percent: 66}),
		// 0 | 1 | 2
		//     3
		splitStep(split{pane: 1, horizontal: true, percent: 50}),
		retryStep("select-3", s, m.SelectPaneLine(3)),
		// 0 | 1 | 2
		// 3 | 4
		splitStep(split{pane: 3, horizontal: true, percent: 66}),
		// 0 | 1 | 2
		// 3 | 4 | 5
		splitStep(split{pane: 4, horizontal: true, percent: 50}),
	}

	mouse := retryStep("mouse-on", s, m.SetOptionLine("mouse", "on"))
	mouse.Delay = l.MouseSettleDelay
	steps = append(steps, mouse)

	dispatch := func(name string, i int, line string, enter bool) Step {
		return Step{Name: name, Argv: m.SendKeys(pane(i), line, enter), Mode: Checked, Delay: l.SettleDelay}
	}
	for i, f := range logFiles {
		steps = append(steps, dispatch(fmt.Sprintf("tail-%d", i), PaneLog1+i, "tail -f "+f, true))
	}
	// Typed but not submitted: pressing Enter in this pane ends the session.
	steps = append(steps, dispatch("quit", PaneQuit, m.KillSessionLine(s), false))
	for i, port := range l.Ports {
		line := fmt.Sprintf("%s %s %d", l.NetClient, l.Host, port)
		steps = append(steps, dispatch(fmt.Sprintf("input-%d", i), PaneInput1+i, line, true))
	}

	return append(steps, Step{Name: "attach", Argv: m.AttachSession(s), Mode: BestEffort})
}

// PaneLabels describes what each pane of the finished grid runs.
func PaneLabels(l config.Layout, logFiles [3]string) [PaneCount]string {
	var labels [PaneCount]string
	for i, f := range logFiles {
		labels[PaneLog1+i] = "tail " + filepath.Base(f)
	}
	labels[PaneQuit] = "quit (Enter kills " + l.Session + ")"
	for i, port := range l.Ports {
		labels[PaneInput1+i] = fmt.Sprintf("%s %s:%d", l.NetClient, l.Host, port)
	}
	return labels
}
