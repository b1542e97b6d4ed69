// Package mux provides the terminal multiplexer control plane used to build
// and inspect the iorepl session.
//
// Control commands are expressed as argument vectors so that callers can
// decide how to execute them (once, checked, or retried until a given exit
// status) through a Runner.
package mux

import (
	"context"
)

// Pane is a single pane of a multiplexer session.
type Pane struct {
	// Target is the fully qualified pane identifier (e.g., "session:0.0").
	Target string
	// Session is the session name.
	Session string
	// Window is the window index.
	Window int
	// Pane is the pane index.
	Pane int
	// PID is the pane's shell process ID.
	PID int
	// Command is the current command running in the pane (e.g., "tail", "netcat").
	Command string
}

// Multiplexer abstracts terminal multiplexer operations.
type Multiplexer interface {
	// KillSession returns the command that destroys a session.
	KillSession(session string) []string
	// NewSession returns the command that creates a detached session.
	NewSession(session string) []string
	// SendKeys returns the command that types keys into target,
	// optionally followed by Enter.
	SendKeys(target, keys string, enter bool) []string
	// AttachSession returns the command that attaches the current terminal.
	AttachSession(session string) []string

	// PaneTarget returns the target for pane index of session.
	PaneTarget(session string, pane int) string

	// Command lines typed into a pane's shell. Sending them through the
	// pane rather than running them directly lets each split inherit the
	// pane's working directory.
	SplitWindowLine(horizontal bool, percent int) string
	SelectPaneLine(pane int) string
	SetOptionLine(option, value string) string
	KillSessionLine(session string) string

	// ListPanes returns the panes of session.
	ListPanes(ctx context.Context, session string) ([]Pane, error)
	// CapturePane captures the visible content of a pane.
	CapturePane(ctx context.Context, target string) (string, error)
}
