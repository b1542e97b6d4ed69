package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "iorepl"

// Metrics holds all OTEL metric instruments for iorepl.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Layout steps partitioned by mode (best_effort, retry, checked) and outcome.
	Steps metric.Int64Counter
	// Every execution of a retried control command.
	RetryAttempts metric.Int64Counter
	// Wall time of a step including its settle delay.
	StepDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Steps, err = meter.Int64Counter("iorepl.steps.total",
		metric.WithDescription("Layout steps executed, partitioned by mode and outcome"))
	if err != nil {
		return nil, err
	}

	m.RetryAttempts, err = meter.Int64Counter("iorepl.retry.attempts",
		metric.WithDescription("Executions of retried multiplexer control commands"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, err
	}

	m.StepDuration, err = meter.Float64Histogram("iorepl.step.duration",
		metric.WithDescription("Duration of a layout step including its settle delay"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordStep records a finished layout step.
func (m *Metrics) RecordStep(ctx context.Context, step, mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step.name", step),
		attribute.String("step.mode", mode),
		attribute.String("step.outcome", outcome),
	)
	m.Steps.Add(ctx, 1, attrs)
	m.StepDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordAttempt records one execution of a retried command and the exit
// status it returned.
func (m *Metrics) RecordAttempt(ctx context.Context, status int) {
	if m == nil {
		return
	}
	m.RetryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("process.exit.code", status),
	))
}
