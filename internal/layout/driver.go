package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/timvw/iorepl/internal/mux"
	telem "github.com/timvw/iorepl/internal/otel"
	"github.com/timvw/iorepl/internal/retry"
)

// ErrStepFailed is returned when a Checked step exits nonzero.
var ErrStepFailed = errors.New("step failed")

// Driver runs a step list against a Runner, one step at a time.
// There is no rollback: a failing step leaves the session as far as it got.
type Driver struct {
	Runner mux.Runner

	// RetryInterval is the pause after each attempt of a Retry step.
	// Zero means retry.DefaultInterval.
	RetryInterval time.Duration
	// MaxAttempts caps the attempts of each Retry step. Zero is unbounded.
	MaxAttempts int
	// RetryTimeout bounds each Retry step. Zero is unbounded.
	RetryTimeout time.Duration

	// Sleep replaces time.Sleep for settle delays and retry pauses (for tests).
	Sleep func(time.Duration)

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *telem.Metrics

	// BeforeStep, if set, is called before each step. Used to flush
	// telemetry before a blocking attach.
	BeforeStep func(ctx context.Context, step Step)
}

// Run executes steps in order and stops at the first error.
func (d *Driver) Run(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.BeforeStep != nil {
			d.BeforeStep(ctx, step)
		}
		if err := d.runStep(ctx, step); err != nil {
			return fmt.Errorf("step %d/%d %s: %w", i+1, len(steps), step.Name, err)
		}
	}
	return nil
}

func (d *Driver) runStep(ctx context.Context, step Step) (err error) {
	if len(step.Argv) == 0 {
		return errors.New("empty command")
	}

	start := time.Now()
	ctx, span := d.tracer().Start(ctx, "layout."+step.Name, trace.WithAttributes(
		attribute.String("step.mode", step.Mode.String()),
		attribute.String("step.command", strings.Join(step.Argv, " ")),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		d.Metrics.RecordStep(ctx, step.Name, step.Mode.String(), outcome, time.Since(start))
	}()

	log := d.logger().With("step", step.Name, "mode", step.Mode.String())

	switch step.Mode {
	case BestEffort:
		status, err := d.Runner.Run(ctx, step.Argv[0], step.Argv[1:]...)
		if err != nil {
			return err
		}
		log.Debug("step done", "status", status)

	case Checked:
		status, err := d.Runner.Run(ctx, step.Argv[0], step.Argv[1:]...)
		if err != nil {
			return err
		}
		if status != 0 {
			return fmt.Errorf("%w: %q exited with status %d", ErrStepFailed, strings.Join(step.Argv, " "), status)
		}
		log.Debug("step done", "status", status)

	case Retry:
		rctx := ctx
		if d.RetryTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, d.RetryTimeout)
			defer cancel()
		}
		attempts, err := retry.UntilStatus(rctx, d.Runner, step.Target, step.Argv, retry.Options{
			Interval:    d.RetryInterval,
			MaxAttempts: d.MaxAttempts,
			Sleep:       d.Sleep,
			Logger:      log,
			OnAttempt: func(_, status int) {
				d.Metrics.RecordAttempt(ctx, status)
			},
		})
		span.SetAttributes(attribute.Int("retry.attempts", attempts))
		if err != nil {
			return err
		}
		if attempts > 1 {
			log.Info("control command needed retries", "attempts", attempts)
		}

	default:
		return fmt.Errorf("unknown step mode %s", step.Mode)
	}

	if step.Delay > 0 {
		d.sleep(step.Delay)
	}
	return nil
}

func (d *Driver) sleep(dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (d *Driver) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}
	return noop.NewTracerProvider().Tracer("")
}
