package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// CaseIDKey is the context key for case identifiers.
	CaseIDKey contextKey = "case_id"

	// RunIDKey is the context key for pipeline run identifiers.
	RunIDKey contextKey = "run_id"

	// StageKey is the context key for the running stage name.
	StageKey contextKey = "stage"

	// ReviewerKey is the context key for reviewer identifiers.
	ReviewerKey contextKey = "reviewer"
)

// WithCaseID adds a case ID to the context.
func WithCaseID(ctx context.Context, caseID string) context.Context {
	return context.WithValue(ctx, CaseIDKey, caseID)
}

// GetCaseID retrieves the case ID from the context.
func GetCaseID(ctx context.Context) string {
	return stringValue(ctx, CaseIDKey)
}

// WithRunID adds a pipeline run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// GetStage retrieves the stage name from the context.
func GetStage(ctx context.Context) string {
	return stringValue(ctx, StageKey)
}

// WithReviewer adds a reviewer identifier to the context.
func WithReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, ReviewerKey, reviewer)
}

// GetReviewer retrieves the reviewer identifier from the context.
func GetReviewer(ctx context.Context) string {
	return stringValue(ctx, ReviewerKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs returns the log attributes stored in ctx, including the
// trace and span IDs of an active span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range []contextKey{CaseIDKey, RunIDKey, StageKey, ReviewerKey} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
