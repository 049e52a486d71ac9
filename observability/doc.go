// Package observability wires OpenTelemetry tracing and metrics for batch
// execution.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("cloudbatch"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanBatchExecute)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("cloudbatch"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewBatchMetrics(observability.Meter("cloudbatch"))
//	metrics.RecordStage(ctx, 0, 42, elapsed)
//
// Setup does both from a Config and returns a single shutdown function.
package observability
