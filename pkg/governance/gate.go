package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/confidence"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/review"
)

// ErrNoQueue is returned by NewGate without a review queue.
var ErrNoQueue = errors.New("governance gate requires a review queue")

// ReasonPolicyEscalation is the decision reason when a rule verdict forces
// escalation of a decided case.
const ReasonPolicyEscalation = "Policy verdict requires human review"

// Observer receives governance outcomes. The telemetry metrics collector
// satisfies it.
type Observer interface {
	RecordGovernance(state, decision string, confidence float64)
}

// Gate is the governance state machine.
type Gate struct {
	queue     *review.Queue
	audit     *audit.Writer
	artifacts artifacts.Store
	observer  Observer
	tracer    trace.Tracer
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithAuditWriter records governance events.
func WithAuditWriter(w *audit.Writer) Option {
	return func(g *Gate) {
		g.audit = w
	}
}

// WithArtifacts persists the governed record and the final decision.
func WithArtifacts(s artifacts.Store) Option {
	return func(g *Gate) {
		g.artifacts = s
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(g *Gate) {
		g.observer = o
	}
}

// WithTracer sets the tracer for governance spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gate) {
		g.tracer = t
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(g *Gate) {
		g.clock = clock
	}
}

// NewGate creates a gate that escalates through queue.
func NewGate(queue *review.Queue, opts ...Option) (*Gate, error) {
	if queue == nil {
		return nil, ErrNoQueue
	}
	g := &Gate{
		queue:  queue,
		tracer: noop.NewTracerProvider().Tracer("governance"),
		clock:  time.Now,
		logger: slog.Default().With("component", "governance.gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Evaluate governs a case record. The record passed in is not modified.
func (g *Gate) Evaluate(ctx context.Context, rec *caserecord.Record) (*Result, error) {
	if rec == nil || rec.CaseID == "" {
		return nil, policy.NewMalformedFactsError("case_id", "required field is missing")
	}

	ctx, span := g.tracer.Start(ctx, "governance.evaluate", trace.WithAttributes(
		attribute.String("case.id", rec.CaseID),
		attribute.String("case.variant", string(rec.Variant)),
	))
	defer span.End()

	result, err := g.evaluate(ctx, rec.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "governance failed")
		g.logger.Error("governance failed", "case_id", rec.CaseID, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("governance.state", string(result.State)),
		attribute.String("governance.decision", result.FinalDecision),
		attribute.Float64("governance.confidence", result.Confidence),
	)
	if g.observer != nil {
		g.observer.RecordGovernance(string(result.State), result.FinalDecision, result.Confidence)
	}
	g.logger.Info("case governed",
		"case_id", result.CaseID,
		"state", result.State,
		"final_decision", result.FinalDecision,
		"confidence", result.Confidence,
		"reliability_index", result.ReliabilityIndex,
	)
	return result, nil
}

func (g *Gate) evaluate(ctx context.Context, rec *caserecord.Record) (*Result, error) {
	caseID := rec.CaseID

	rules, err := policy.ForVariant(rec.Variant)
	if err != nil {
		return nil, err
	}
	verdicts, err := rules.Evaluate(rec.RiskFacts)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation: %w", err)
	}
	reliability, err := confidence.Score(rec.RiskFacts, verdicts)
	if err != nil {
		return nil, fmt.Errorf("confidence scoring: %w", err)
	}
	if rec.Decision == nil {
		return nil, policy.NewMalformedFactsError("decision", "required field is missing")
	}
	if !rec.Decision.Outcome.Valid() {
		return nil, policy.NewMalformedFactsError("decision.outcome", fmt.Sprintf("unknown outcome %q", rec.Decision.Outcome))
	}

	rec.RuleVerdicts = verdicts
	rec.Confidence = &reliability
	decision := effectiveDecision(rec.RiskFacts, *rec.Decision, verdicts)

	result := &Result{
		CaseID:           caseID,
		Explanation:      rec.Reasoning,
		ReliabilityIndex: reliability,
		RuleVerdicts:     verdicts,
		GovernedAt:       g.clock().UTC(),
	}

	events := []caserecord.Event{
		caserecord.NewEvent(caseID, caserecord.EventPolicyEvaluation, map[string]any{
			"rule_verdicts":     verdicts,
			"violations":        countViolations(verdicts),
			"reliability_index": reliability,
			"system_decision":   string(decision.Outcome),
		}),
	}

	switch decision.Outcome {
	case caserecord.OutcomeApprove, caserecord.OutcomeDeny:
		result.FinalDecision = string(decision.Outcome)
		result.DecisionReason = decision.Reason
		result.Confidence = DeterministicConfidence
		result.ReviewStatus = caserecord.ReviewNotRequired
		result.State = StateApproved
		if decision.Outcome == caserecord.OutcomeDeny {
			result.State = StateDenied
		}

	default:
		result.HumanReviewRequired = true

		completed, err := g.queue.LoadReview(ctx, caseID)
		if err != nil {
			return nil, fmt.Errorf("load review: %w", err)
		}

		if completed != nil {
			result.FinalDecision = string(completed.Decision)
			result.DecisionReason = HumanReviewReasonPrefix + completed.Comments
			result.Confidence = ReviewedConfidence
			result.ReviewStatus = caserecord.ReviewCompleted
			result.State = StateEscalatedCompleted
			result.Reviewer = completed.Reviewer

			// Normally already written by Submit; the audit writer drops
			// the duplicate.
			humanReview := caserecord.NewEvent(caseID, caserecord.EventHumanReview, review.HumanReviewDetail(completed))
			humanReview.Timestamp = completed.ReviewedAt
			events = append(events, humanReview)
		} else {
			payload := review.Payload{
				SystemDecision:   decision.Outcome,
				DecisionReason:   decision.Reason,
				EvidenceMismatch: rec.RiskFacts.EvidenceMismatch,
				ReasoningSummary: rec.Reasoning,
				RuleVerdicts:     verdicts,
				ReliabilityIndex: reliability,
			}
			if _, err := g.queue.Enqueue(ctx, caseID, payload); err != nil {
				return nil, fmt.Errorf("enqueue review: %w", err)
			}

			result.FinalDecision = string(decision.Outcome)
			result.DecisionReason = decision.Reason
			result.Confidence = reliability
			result.ReviewStatus = caserecord.ReviewPending
			result.State = StateEscalatedPendingReview

			events = append(events, caserecord.NewEvent(caseID, caserecord.EventEscalationQueued, map[string]any{
				"system_decision":   string(decision.Outcome),
				"decision_reason":   decision.Reason,
				"evidence_mismatch": rec.RiskFacts.EvidenceMismatch,
			}))
		}
	}

	events = append(events, caserecord.NewEvent(caseID, caserecord.EventGovernanceCycle, map[string]any{
		"state":          string(result.State),
		"final_decision": result.FinalDecision,
		"confidence":     result.Confidence,
		"review_status":  string(result.ReviewStatus),
	}).WithDedupKey(CycleKey(result.State)))

	rec.ReviewStatus = result.ReviewStatus
	for _, e := range events {
		if !rec.HasEvent(e.Key()) {
			rec.AppendEvent(e)
		}
	}

	if g.audit != nil {
		if _, err := g.audit.Record(ctx, events...); err != nil {
			return nil, fmt.Errorf("record governance events: %w", err)
		}
		timeline, err := g.audit.Timeline(ctx, caseID)
		if err != nil {
			return nil, fmt.Errorf("load timeline: %w", err)
		}
		result.Timeline = timeline
	} else {
		result.Timeline = rec.Timeline
	}

	if err := g.persist(ctx, rec, result); err != nil {
		return nil, err
	}
	return result, nil
}

// persist writes the governed record and the final decision artifacts.
func (g *Gate) persist(ctx context.Context, rec *caserecord.Record, result *Result) error {
	if g.artifacts == nil {
		return nil
	}
	ref, err := artifacts.PutJSON(ctx, g.artifacts, rec.CaseID, GovernedRecordArtifact, rec)
	if err != nil {
		return fmt.Errorf("persist governed record: %w", err)
	}
	result.Artifacts = append(result.Artifacts, *ref)

	final := *result
	final.Timeline = nil
	ref, err = artifacts.PutJSON(ctx, g.artifacts, rec.CaseID, FinalDecisionArtifact, &final)
	if err != nil {
		return fmt.Errorf("persist final decision: %w", err)
	}
	result.Artifacts = append(result.Artifacts, *ref)
	return nil
}

// effectiveDecision applies the escalation overrides to the upstream
// decision.
func effectiveDecision(facts caserecord.RiskFacts, decided caserecord.Decision, verdicts map[string]string) caserecord.Decision {
	if facts.EvidenceMismatch {
		return caserecord.Decision{Outcome: caserecord.OutcomeEscalate, Reason: policy.ReasonEvidenceMismatch}
	}
	if decided.Outcome != caserecord.OutcomeEscalate {
		for _, v := range verdicts {
			if policy.Verdict(v) == policy.VerdictEscalate {
				return caserecord.Decision{Outcome: caserecord.OutcomeEscalate, Reason: ReasonPolicyEscalation}
			}
		}
	}
	return decided
}

func countViolations(verdicts map[string]string) int {
	n := 0
	for _, v := range verdicts {
		if policy.Verdict(v).IsViolation() {
			n++
		}
	}
	return n
}

// CycleKey is the audit de-duplication key of a governance cycle. Each
// distinct state is recorded once per case.
func CycleKey(state State) string {
	return string(caserecord.EventGovernanceCycle) + ":" + string(state)
}
