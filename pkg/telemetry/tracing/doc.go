// Package tracing provides OpenTelemetry distributed tracing for Arbiter.
//
// # Overview
//
// Spans are exported to an OTLP gRPC collector. The pipeline runner opens a
// span per run and per stage, the governance gate per evaluation and the
// review queue per enqueue and submission, so a trace shows a case moving
// through its stages.
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces
//   - ratio: Sample a percentage of traces (production)
//
// All strategies are parent based.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	runner, _ := pipeline.NewRunner(stages,
//	    pipeline.WithTracer(tracer.Tracer("pipeline")),
//	)
//
// When tracing is disabled every tracer is a noop tracer.
package tracing
