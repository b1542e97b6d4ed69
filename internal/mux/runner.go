package mux

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner executes external commands and reports their exit status.
type Runner interface {
	// Run executes name with args and blocks until it exits. A command that
	// ran to completion reports its exit status with a nil error, whatever
	// the status. A non-nil error means no status is available (the
	// executable could not be started, or ctx was cancelled).
	Run(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner runs commands with os/exec, connected to the given streams.
// Nil streams are connected to the null device. Attaching to a session
// needs the operator's terminal: use NewExecRunner for that.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner wired to the process's own stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes a command and returns its exit status.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, err
}
