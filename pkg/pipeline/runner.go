package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

// Stage outcomes reported to the Observer.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusRestored = "restored"
)

// Observer receives per-stage outcomes. The telemetry metrics collector
// satisfies it.
type Observer interface {
	RecordStage(stage, status string, duration time.Duration)
}

// Runner executes a fixed sequence of stages.
type Runner struct {
	stages      []Stage
	audit       *audit.Writer
	checkpoints artifacts.Store
	timeout     time.Duration
	observer    Observer
	tracer      trace.Tracer
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAuditWriter records each stage milestone.
func WithAuditWriter(w *audit.Writer) RunnerOption {
	return func(r *Runner) {
		r.audit = w
	}
}

// WithCheckpoints saves stage outputs and restores them on replay.
func WithCheckpoints(s artifacts.Store) RunnerOption {
	return func(r *Runner) {
		r.checkpoints = s
	}
}

// WithStageTimeout bounds each stage invocation. Zero means no limit.
func WithStageTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner creates a runner for the given stages. Stage names must be
// unique.
func NewRunner(stages []Stage, opts ...RunnerOption) (*Runner, error) {
	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("stage %d is nil", i)
		}
		if s.Name() == "" || s.Milestone() == "" {
			return nil, fmt.Errorf("stage %d needs a name and a milestone", i)
		}
		if seen[s.Name()] {
			return nil, fmt.Errorf("duplicate stage name %q", s.Name())
		}
		seen[s.Name()] = true
	}

	r := &Runner{
		stages: append([]Stage(nil), stages...),
		tracer: noop.NewTracerProvider().Tracer("pipeline"),
		logger: slog.Default().With("component", "pipeline.runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Stages returns the stage names in execution order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name()
	}
	return names
}

// CheckpointName is the artifact name of a stage checkpoint.
func CheckpointName(stage string) string {
	return "checkpoint_" + stage + ".json"
}

// Run executes every stage in order and returns the final record. The input
// record is not modified.
func (r *Runner) Run(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	if rec == nil || rec.CaseID == "" {
		return nil, ErrInvalidRecord
	}
	caseID := rec.CaseID
	runID := uuid.New().String()

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("case.variant", string(rec.Variant)),
		attribute.String("run.id", runID),
	))
	defer span.End()
	ctx = logging.WithRunID(logging.WithCaseID(ctx, caseID), runID)

	logger := r.logger.With("case_id", caseID, "run_id", runID)
	logger.Info("pipeline started", "stages", len(r.stages))

	current := rec.Clone()
	for _, stage := range r.stages {
		next, err := r.runStage(ctx, logger, stage, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stage failed")
			logger.Error("pipeline aborted", "stage", stage.Name(), "error", err)
			return nil, err
		}
		current = next
	}

	logger.Info("pipeline completed")
	return current, nil
}

func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, stage Stage, in *caserecord.Record) (*caserecord.Record, error) {
	caseID := in.CaseID
	name := stage.Name()

	ctx, span := r.tracer.Start(ctx, "pipeline.stage/"+name, trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("stage.name", name),
	))
	defer span.End()
	ctx = logging.WithStage(ctx, name)

	start := time.Now()

	restored, err := r.restore(ctx, stage, caseID)
	if err != nil {
		r.observe(name, StatusFailed, start)
		return nil, NewStageFailure(caseID, name, err)
	}
	if restored != nil {
		span.SetAttributes(attribute.Bool("stage.restored", true))
		logger.Info("stage restored from checkpoint", "stage", name)
		r.observe(name, StatusRestored, start)
		return restored, nil
	}

	out, err := r.invoke(ctx, stage, in.Clone())
	if err == nil && out == nil {
		err = ErrNilRecord
	}
	if err == nil && out.CaseID != caseID {
		err = fmt.Errorf("%w: %q became %q", ErrCaseIDChanged, caseID, out.CaseID)
	}
	if err == nil {
		if field := removedField(in, out); field != "" {
			err = fmt.Errorf("%w: %s", ErrFieldRemoved, field)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe(name, StatusFailed, start)
		return nil, NewStageFailure(caseID, name, err)
	}

	detail := map[string]any{"stage": name}
	if d, ok := stage.(Describer); ok {
		for k, v := range d.Describe(out) {
			detail[k] = v
		}
	}
	event := caserecord.NewEvent(caseID, stage.Milestone(), detail)
	if !out.HasEvent(event.Key()) {
		out.AppendEvent(event)
	}

	if r.checkpoints != nil {
		if _, err := artifacts.PutJSON(ctx, r.checkpoints, caseID, CheckpointName(name), out); err != nil {
			r.observe(name, StatusFailed, start)
			return nil, NewStageFailure(caseID, name, fmt.Errorf("save checkpoint: %w", err))
		}
	}
	if r.audit != nil {
		if _, err := r.audit.Record(ctx, event); err != nil {
			r.observe(name, StatusFailed, start)
			return nil, NewStageFailure(caseID, name, fmt.Errorf("record milestone: %w", err))
		}
	}

	logger.Debug("stage completed", "stage", name, "duration", time.Since(start))
	r.observe(name, StatusOK, start)
	return out, nil
}

// removedField names the first field of in that out no longer carries, or
// returns "" when out retains everything.
func removedField(in, out *caserecord.Record) string {
	if k := missingKey(in.Extensions, out.Extensions); k != "" {
		return "extensions." + k
	}
	if k := missingKey(in.RuleVerdicts, out.RuleVerdicts); k != "" {
		return "rule_verdicts." + k
	}
	if k := missingKey(in.Narratives, out.Narratives); k != "" {
		return "narratives." + k
	}
	if k := missingKey(in.RiskFacts.Scores, out.RiskFacts.Scores); k != "" {
		return "risk_facts.scores." + k
	}
	if k := missingKey(in.RiskFacts.Anomalies, out.RiskFacts.Anomalies); k != "" {
		return "risk_facts.anomalies." + k
	}
	if k := missingKey(in.RiskFacts.Network, out.RiskFacts.Network); k != "" {
		return "risk_facts.network." + k
	}
	switch {
	case in.Decision != nil && out.Decision == nil:
		return "decision"
	case in.Confidence != nil && out.Confidence == nil:
		return "confidence"
	case in.Reasoning != "" && out.Reasoning == "":
		return "reasoning"
	case len(in.Input) > 0 && len(out.Input) == 0:
		return "input"
	case len(out.Timeline) < len(in.Timeline):
		return "timeline"
	}
	return ""
}

func missingKey[V any](in, out map[string]V) string {
	for k := range in {
		if _, ok := out[k]; !ok {
			return k
		}
	}
	return ""
}

func (r *Runner) invoke(ctx context.Context, stage Stage, in *caserecord.Record) (*caserecord.Record, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return stage.Run(ctx, in)
}

// restore returns the checkpointed output of a stage whose milestone is
// already audited, or nil when the stage must run.
func (r *Runner) restore(ctx context.Context, stage Stage, caseID string) (*caserecord.Record, error) {
	if r.audit == nil || r.checkpoints == nil {
		return nil, nil
	}
	seen, err := r.audit.Seen(ctx, caseID, string(stage.Milestone()))
	if err != nil {
		return nil, fmt.Errorf("check milestone: %w", err)
	}
	if !seen {
		return nil, nil
	}

	var rec caserecord.Record
	err = artifacts.GetJSON(ctx, r.checkpoints, caseID, CheckpointName(stage.Name()), &rec)
	if errors.Is(err, artifacts.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if err := caserecord.CheckSchema(rec.SchemaVersion); err != nil {
		r.logger.Warn("ignoring incompatible checkpoint",
			"case_id", caseID,
			"stage", stage.Name(),
			"schema_version", rec.SchemaVersion,
		)
		return nil, nil
	}
	if rec.CaseID != caseID {
		return nil, nil
	}
	return &rec, nil
}

func (r *Runner) observe(stage, status string, start time.Time) {
	if r.observer != nil {
		r.observer.RecordStage(stage, status, time.Since(start))
	}
}
