// Package observability provides OpenTelemetry tracing and metrics helpers
// for pipeline submissions.
//
// Spans and instruments use the global providers, so wiring an exporter is
// left to the embedding application:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("gears"))
//	metrics.RecordExecution(ctx, "run", "ok", duration)
package observability
