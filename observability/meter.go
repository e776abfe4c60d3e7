package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded around pipeline submissions.
type Metrics struct {
	executions   metric.Int64Counter
	duration     metric.Float64Histogram
	records      metric.Int64Counter
	remoteErrors metric.Int64Counter
	payloadSize  metric.Int64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	executions, err := meter.Int64Counter("gears.executions",
		metric.WithDescription("Pipelines submitted, by operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.executions counter: %w", err)
	}

	duration, err := meter.Float64Histogram("gears.duration",
		metric.WithDescription("Round-trip time of pipeline submissions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.duration histogram: %w", err)
	}

	records, err := meter.Int64Counter("gears.records",
		metric.WithDescription("Records returned by run executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.records counter: %w", err)
	}

	remoteErrors, err := meter.Int64Counter("gears.remote_errors",
		metric.WithDescription("Per-record errors reported by the remote engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.remote_errors counter: %w", err)
	}

	payloadSize, err := meter.Int64Histogram("gears.payload_size",
		metric.WithDescription("Size of serialized pipelines in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.payload_size histogram: %w", err)
	}

	return &Metrics{
		executions:   executions,
		duration:     duration,
		records:      records,
		remoteErrors: remoteErrors,
		payloadSize:  payloadSize,
	}, nil
}

// RecordExecution records one submission and its round-trip time.
func (m *Metrics) RecordExecution(ctx context.Context, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordResult records the size of a run reply.
func (m *Metrics) RecordResult(ctx context.Context, records, remoteErrors int) {
	if m == nil {
		return
	}
	m.records.Add(ctx, int64(records))
	m.remoteErrors.Add(ctx, int64(remoteErrors))
}

// RecordPayload records the size of a serialized pipeline.
func (m *Metrics) RecordPayload(ctx context.Context, operation string, size int) {
	if m == nil {
		return
	}
	m.payloadSize.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
