// Package telemetry groups Arbiter's observability packages.
//
// # Components
//
//   - logging: slog setup with PII redaction and case fields from context
//   - metrics: Prometheus collector implementing the pipeline, governance,
//     review and audit observer interfaces
//   - tracing: OpenTelemetry tracer provider with OTLP gRPC export
//   - health: liveness and readiness probes over store pings
//
// # Usage
//
//	cfg := config.GetConfig()
//	logger, _ := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
package telemetry
