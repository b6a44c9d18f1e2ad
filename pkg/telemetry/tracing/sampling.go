package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampling strategies.
const (
	// SamplerAlways samples every trace.
	SamplerAlways = "always"

	// SamplerNever samples no trace.
	SamplerNever = "never"

	// SamplerRatio samples a fraction of traces by trace ID.
	SamplerRatio = "ratio"
)

// createSampler builds the sampler for a strategy. The result is parent
// based, so a sampled parent always yields sampled children and a batch run
// is traced as a whole or not at all.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var baseSampler sdktrace.Sampler

	switch strategy {
	case SamplerAlways:
		baseSampler = sdktrace.AlwaysSample()

	case SamplerNever:
		baseSampler = sdktrace.NeverSample()

	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		baseSampler = sdktrace.TraceIDRatioBased(ratio)

	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	return sdktrace.ParentBased(baseSampler), nil
}
