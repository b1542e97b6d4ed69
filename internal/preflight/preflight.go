// Package preflight decides whether a layout run may proceed: required
// executables, the run identifier argument, and the log files to tail.
//
// Checks run in a fixed order and stop at the first failure. Nothing is
// executed or written.
package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"

	"github.com/timvw/iorepl/internal/config"
)

// Failure classes. Every failure exits with status 1.
var (
	ErrMissingMultiplexer = errors.New("missing multiplexer")
	ErrMissingNetClient   = errors.New("missing network client")
	ErrUsage              = errors.New("usage")
	ErrInvalidRunID       = errors.New("invalid run id")
	ErrMissingLogDir      = errors.New("missing log directory")
	ErrMissingLogFile     = errors.New("missing log file")
)

// Error is a precondition failure with the message shown to the operator.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is match the failure class.
func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Env is the part of the host the checks look at.
type Env interface {
	LookPath(file string) (string, error)
	Stat(name string) (fs.FileInfo, error)
}

// OSEnv reads the real PATH and filesystem.
type OSEnv struct{}

func (OSEnv) LookPath(file string) (string, error)  { return exec.LookPath(file) }
func (OSEnv) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// Result is what a successful check resolved.
type Result struct {
	// Help is set when help was requested; nothing else is filled in.
	Help bool
	// RunID selects the log file instance.
	RunID int
	// LogFiles are the three files to tail, in pane order.
	LogFiles [3]string
}

// IsHelp reports whether arg asks for help.
func IsHelp(arg string) bool {
	return arg == "-h" || arg == "--help"
}

// Usage returns the one-line usage text for program.
func Usage(program string) string {
	return fmt.Sprintf("usage: %s <run_id> | -h | --help", program)
}

// Check validates args (program name excluded) against layout and env.
func Check(program string, args []string, layout config.Layout, env Env) (Result, error) {
	if _, err := env.LookPath(layout.Multiplexer); err != nil {
		return Result{}, fail(ErrMissingMultiplexer,
			"Please install %s to have functional monitoring, exiting..", layout.Multiplexer)
	}
	if _, err := env.LookPath(layout.NetClient); err != nil {
		return Result{}, fail(ErrMissingNetClient,
			"Please install %s to have functional input writing, exiting..", layout.NetClient)
	}

	if len(args) != 1 {
		return Result{}, fail(ErrUsage,
			"%s must have exactly 1 argument: the number of the log files, exiting..\n%s",
			program, Usage(program))
	}
	if IsHelp(args[0]) {
		return Result{Help: true}, nil
	}
	runID, err := strconv.Atoi(args[0])
	if err != nil {
		return Result{}, fail(ErrInvalidRunID, "argument is no valid integer, exiting..")
	}

	if info, err := env.Stat(layout.LogDir); err != nil || !info.IsDir() {
		return Result{}, fail(ErrMissingLogDir,
			"The directory for the logfiles does not exist, exiting..")
	}

	res := Result{RunID: runID, LogFiles: layout.LogFiles(runID)}
	for i, path := range res.LogFiles {
		if info, err := env.Stat(path); err != nil || !info.Mode().IsRegular() {
			return Result{}, fail(ErrMissingLogFile,
				"logfile %s for %s does not exist, exiting..", path, layout.Processes[i])
		}
	}
	return res, nil
}
