// Package observability wires OpenTelemetry tracing and metrics for streamed
// responses.
//
//	tp, err := observability.InitTracer(ctx, cfg, svc)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter())
//	it := observability.Instrument(encoder, metrics, "/api/events")
package observability
