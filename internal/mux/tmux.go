package mux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Tmux implements the Multiplexer interface for tmux.
type Tmux struct {
	bin string
}

// NewTmux creates a tmux multiplexer that invokes the given executable.
// An empty bin means "tmux".
func NewTmux(bin string) *Tmux {
	if bin == "" {
		bin = "tmux"
	}
	return &Tmux{bin: bin}
}

// KillSession returns: tmux kill-session -t <session>.
// tmux exits 1 when the session does not exist.
func (t *Tmux) KillSession(session string) []string {
	return []string{t.bin, "kill-session", "-t", session}
}

// NewSession returns: tmux new-session -d -s <session>.
func (t *Tmux) NewSession(session string) []string {
	return []string{t.bin, "new-session", "-d", "-s", session}
}

// SendKeys returns: tmux send-keys -t <target> <keys> [ENTER].
func (t *Tmux) SendKeys(target, keys string, enter bool) []string {
	argv := []string{t.bin, "send-keys", "-t", target, keys}
	if enter {
		argv = append(argv, "ENTER")
	}
	return argv
}

// AttachSession returns: tmux attach-session -t <session>.
func (t *Tmux) AttachSession(session string) []string {
	return []string{t.bin, "attach-session", "-t", session}
}

// PaneTarget returns "<session>.<pane>".
func (t *Tmux) PaneTarget(session string, pane int) string {
	return session + "." + strconv.Itoa(pane)
}

// SplitWindowLine returns the split-window command line typed into a pane.
// Without horizontal the new pane goes below; with it, to the right.
// The new pane starts in the shell's working directory.
func (t *Tmux) SplitWindowLine(horizontal bool, percent int) string {
	flags := "-p " + strconv.Itoa(percent)
	if horizontal {
		flags = "-h " + flags
	}
	return fmt.Sprintf(`%s split-window %s -c "$PWD"`, t.bin, flags)
}

// SelectPaneLine returns the select-pane command line typed into a pane.
func (t *Tmux) SelectPaneLine(pane int) string {
	return fmt.Sprintf("%s select-pane -t %d", t.bin, pane)
}

// SetOptionLine returns the set-option command line typed into a pane.
func (t *Tmux) SetOptionLine(option, value string) string {
	return fmt.Sprintf("%s set-option %s %s", t.bin, option, value)
}

// KillSessionLine returns the kill-session command line typed into a pane.
func (t *Tmux) KillSessionLine(session string) string {
	return fmt.Sprintf("%s kill-session -t %s", t.bin, session)
}

// ListPanes returns all panes of a tmux session, in window and pane order.
func (t *Tmux) ListPanes(ctx context.Context, session string) ([]Pane, error) {
	// Format: session_name:window_index.pane_index\tpane_pid\tcurrent_command
	format := "#{session_name}:#{window_index}.#{pane_index}\t#{pane_pid}\t#{pane_current_command}"
	out, err := t.run(ctx, "list-panes", "-s", "-t", session, "-F", format)
	if err != nil {
		return nil, fmt.Errorf("tmux list-panes -t %s: %w", session, err)
	}
	return parsePanes(out), nil
}

// CapturePane captures the visible content of a tmux pane.
// Uses -p (stdout) and -J (joined, unwraps lines).
func (t *Tmux) CapturePane(ctx context.Context, target string) (string, error) {
	out, err := t.run(ctx, "capture-pane", "-t", target, "-p", "-J")
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane -t %s: %w", target, err)
	}
	return out, nil
}

// run executes a tmux command and returns its stdout.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.bin, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// parsePanes parses list-panes output. Malformed lines are skipped.
func parsePanes(out string) []Pane {
	var panes []Pane
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pane, err := parseTarget(parts[0])
		if err != nil {
			continue
		}
		pane.PID, _ = strconv.Atoi(parts[1])
		pane.Command = parts[2]
		panes = append(panes, pane)
	}
	return panes
}

// parseTarget parses a tmux target string "session:window.pane" into a Pane.
func parseTarget(target string) (Pane, error) {
	colonIdx := strings.LastIndex(target, ":")
	if colonIdx < 0 {
		return Pane{}, fmt.Errorf("invalid target %q: missing ':'", target)
	}

	session := target[:colonIdx]
	rest := target[colonIdx+1:]

	dotIdx := strings.LastIndex(rest, ".")
	if dotIdx < 0 {
		return Pane{}, fmt.Errorf("invalid target %q: missing '.'", target)
	}

	window, err := strconv.Atoi(rest[:dotIdx])
	if err != nil {
		return Pane{}, fmt.Errorf("invalid window index in %q: %w", target, err)
	}

	pane, err := strconv.Atoi(rest[dotIdx+1:])
	if err != nil {
		return Pane{}, fmt.Errorf("invalid pane index in %q: %w", target, err)
	}

	return Pane{
		Target:  target,
		Session: session,
		Window:  window,
		Pane:    pane,
	}, nil
}
