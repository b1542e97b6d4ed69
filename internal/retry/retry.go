// Package retry runs a command repeatedly until it reports an expected exit
// status.
//
// tmux control commands delivered over a slow or remote connection may fail
// transiently or silently do nothing. Re-running them until tmux reports
// the expected status gives the layout a much better chance of coming out
// right than running each command once.
//
// By default there is no upper bound on the number of attempts: a command
// that can never report the target status blocks forever. Options.MaxAttempts
// and a cancellable context bound the wait.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/timvw/iorepl/internal/mux"
)

// DefaultInterval is the pause after each attempt.
const DefaultInterval = 50 * time.Millisecond

var (
	// ErrUnreachableTarget is returned for a target no process can exit with.
	ErrUnreachableTarget = errors.New("target exit status outside 0..255")
	// ErrAttemptsExhausted is returned when MaxAttempts runs out.
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
)

// Options tune UntilStatus. The zero value retries forever every 50ms.
type Options struct {
	// Interval is the pause after each attempt. Zero means DefaultInterval.
	Interval time.Duration
	// MaxAttempts caps the number of executions. Zero means unbounded.
	MaxAttempts int
	// Sleep replaces the context-aware sleep between attempts (for tests).
	Sleep func(time.Duration)
	// OnAttempt is called after every execution with its 1-based number and status.
	OnAttempt func(attempt, status int)
	// Logger receives one debug record per attempt. Nil discards.
	Logger *slog.Logger
}

// initialStatus returns a status guaranteed to differ from target, so the
// loop always executes the command at least once.
func initialStatus(target int) int {
	if target == 0 {
		return 1
	}
	return 0
}

// UntilStatus executes argv through r until it exits with target, pausing
// after every attempt. It returns the number of executions.
//
// A Runner error (the command could not be run at all) is returned
// immediately, since retrying it cannot produce an exit status.
func UntilStatus(ctx context.Context, r mux.Runner, target int, argv []string, opts Options) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("retry: empty command")
	}
	if target < 0 || target > 255 {
		return 0, fmt.Errorf("%w: %d", ErrUnreachableTarget, target)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = func(d time.Duration) { sleepContext(ctx, d) }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	attempts := 0
	status := initialStatus(target)
	for status != target {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}
		if opts.MaxAttempts > 0 && attempts >= opts.MaxAttempts {
			return attempts, fmt.Errorf("%w: %q after %d attempts (last status %d, want %d)",
				ErrAttemptsExhausted, strings.Join(argv, " "), attempts, status, target)
		}

		s, err := r.Run(ctx, argv[0], argv[1:]...)
		if err != nil {
			return attempts, fmt.Errorf("run %q: %w", strings.Join(argv, " "), err)
		}
		attempts++
		status = s

		logger.Debug("control command attempt",
			"command", argv[1:],
			"attempt", attempts,
			"status", status,
			"target", target)
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempts, status)
		}

		sleep(interval)
	}
	return attempts, nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
