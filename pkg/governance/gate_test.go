package governance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/audit"
	auditstorage "mercator-hq/arbiter/pkg/audit/storage"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/governance"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/review"
	reviewstorage "mercator-hq/arbiter/pkg/review/storage"
)

type governanceObserver struct {
	mu     sync.Mutex
	states []string
}

func (o *governanceObserver) RecordGovernance(state, decision string, confidence float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

type harness struct {
	gate      *governance.Gate
	queue     *review.Queue
	audit     *audit.Writer
	artifacts *artifacts.MemoryStore
	observer  *governanceObserver
}

var governedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	writer := audit.NewWriter(auditstorage.NewMemoryStore())
	queue := review.NewQueue(reviewstorage.NewMemoryStore(), review.WithAuditWriter(writer))
	store := artifacts.NewMemoryStore()
	obs := &governanceObserver{}

	gate, err := governance.NewGate(queue,
		governance.WithAuditWriter(writer),
		governance.WithArtifacts(store),
		governance.WithObserver(obs),
		governance.WithClock(func() time.Time { return governedAt }),
	)
	if err != nil {
		t.Fatalf("NewGate() failed: %v", err)
	}
	return &harness{gate: gate, queue: queue, audit: writer, artifacts: store, observer: obs}
}

func appealRecord(caseID string, outcome caserecord.Outcome, mismatch bool) *caserecord.Record {
	rec := caserecord.New(&caserecord.Definition{CaseID: caseID, Variant: caserecord.VariantAppeals})
	rec.Decision = &caserecord.Decision{Outcome: outcome, Reason: "upstream reason"}
	rec.RiskFacts.Assessment = outcome
	rec.RiskFacts.EvidenceMismatch = mismatch
	rec.Reasoning = "reasoning text"
	return rec
}

func fincrimeRecord(caseID string, scores map[string]float64, outcome caserecord.Outcome) *caserecord.Record {
	rec := caserecord.New(&caserecord.Definition{CaseID: caseID, Variant: caserecord.VariantFinancialCrime})
	rec.RiskFacts.Scores = scores
	rec.Decision = &caserecord.Decision{Outcome: outcome, Reason: "portfolio decision"}
	return rec
}

// TestNewGate tests that a queue is required.
func TestNewGate(t *testing.T) {
	if _, err := governance.NewGate(nil); !errors.Is(err, governance.ErrNoQueue) {
		t.Errorf("NewGate(nil) error = %v, want ErrNoQueue", err)
	}
}

// TestGate_Deterministic tests decided outcomes.
func TestGate_Deterministic(t *testing.T) {
	tests := []struct {
		name        string
		outcome     caserecord.Outcome
		wantState   governance.State
		reliability float64
	}{
		{"approve", caserecord.OutcomeApprove, governance.StateApproved, 0.80},
		{"deny", caserecord.OutcomeDeny, governance.StateDenied, 0.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			res, err := h.gate.Evaluate(ctx, appealRecord("APL-1", tt.outcome, false))
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if res.State != tt.wantState {
				t.Errorf("State = %s, want %s", res.State, tt.wantState)
			}
			if res.FinalDecision != string(tt.outcome) {
				t.Errorf("FinalDecision = %s, want %s", res.FinalDecision, tt.outcome)
			}
			if res.Confidence != governance.DeterministicConfidence {
				t.Errorf("Confidence = %v, want %v", res.Confidence, governance.DeterministicConfidence)
			}
			if res.ReliabilityIndex != tt.reliability {
				t.Errorf("ReliabilityIndex = %v, want %v", res.ReliabilityIndex, tt.reliability)
			}
			if res.ReviewStatus != caserecord.ReviewNotRequired || res.HumanReviewRequired {
				t.Errorf("review = %s/%v, want NOT_REQUIRED/false", res.ReviewStatus, res.HumanReviewRequired)
			}
			if !res.GovernedAt.Equal(governedAt) {
				t.Errorf("GovernedAt = %v, want %v", res.GovernedAt, governedAt)
			}

			if _, err := h.queue.Get(ctx, "APL-1"); !errors.Is(err, review.ErrReviewNotFound) {
				t.Errorf("queue Get() error = %v, want ErrReviewNotFound", err)
			}
		})
	}
}

// TestGate_EscalationOverrides tests the conditions that turn a decided
// case into an escalation.
func TestGate_EscalationOverrides(t *testing.T) {
	tests := []struct {
		name        string
		rec         *caserecord.Record
		wantReason  string
		wantMismach bool
		reliability float64
	}{
		{
			name:        "evidence mismatch",
			rec:         appealRecord("APL-2", caserecord.OutcomeApprove, true),
			wantReason:  policy.ReasonEvidenceMismatch,
			wantMismach: true,
			reliability: 0.75,
		},
		{
			name: "escalate verdict",
			rec: func() *caserecord.Record {
				rec := appealRecord("APL-2", caserecord.OutcomeApprove, false)
				rec.RiskFacts.Assessment = caserecord.OutcomeEscalate
				return rec
			}(),
			wantReason:  governance.ReasonPolicyEscalation,
			reliability: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			res, err := h.gate.Evaluate(ctx, tt.rec)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if res.State != governance.StateEscalatedPendingReview {
				t.Errorf("State = %s, want %s", res.State, governance.StateEscalatedPendingReview)
			}
			if res.FinalDecision != string(caserecord.OutcomeEscalate) {
				t.Errorf("FinalDecision = %s, want ESCALATE", res.FinalDecision)
			}
			if res.DecisionReason != tt.wantReason {
				t.Errorf("DecisionReason = %q, want %q", res.DecisionReason, tt.wantReason)
			}
			if res.Confidence != tt.reliability || res.ReliabilityIndex != tt.reliability {
				t.Errorf("confidence = %v/%v, want %v", res.Confidence, res.ReliabilityIndex, tt.reliability)
			}

			rec, err := h.queue.Get(ctx, "APL-2")
			if err != nil {
				t.Fatalf("queue Get() failed: %v", err)
			}
			if rec.Payload.EvidenceMismatch != tt.wantMismach {
				t.Errorf("Payload.EvidenceMismatch = %v, want %v", rec.Payload.EvidenceMismatch, tt.wantMismach)
			}
			if rec.Payload.SystemDecision != caserecord.OutcomeEscalate {
				t.Errorf("Payload.SystemDecision = %s, want ESCALATE", rec.Payload.SystemDecision)
			}
		})
	}
}

// TestGate_HighRiskFloor tests a financial-crime escalation at the
// confidence floor.
func TestGate_HighRiskFloor(t *testing.T) {
	h := newHarness(t)

	res, err := h.gate.Evaluate(context.Background(), fincrimeRecord("FC-1", map[string]float64{"C1": 9, "C2": 9}, caserecord.OutcomeEscalate))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if res.ReliabilityIndex != 0.40 || res.Confidence != 0.40 {
		t.Errorf("confidence = %v/%v, want 0.40", res.Confidence, res.ReliabilityIndex)
	}
	want := map[string]string{
		"C1": string(policy.VerdictEnhancedDueDiligence),
		"C2": string(policy.VerdictEnhancedDueDiligence),
	}
	if diff := cmp.Diff(want, res.RuleVerdicts); diff != "" {
		t.Errorf("RuleVerdicts mismatch (-want +got):\n%s", diff)
	}
	if !res.Pending() {
		t.Errorf("State = %s, want pending", res.State)
	}
}

// TestGate_SingleHighRisk tests one high-risk entity without signals, which
// stays above the floor.
func TestGate_SingleHighRisk(t *testing.T) {
	h := newHarness(t)

	res, err := h.gate.Evaluate(context.Background(), fincrimeRecord("FC-2", map[string]float64{"C1": 9}, caserecord.OutcomeEscalate))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if res.ReliabilityIndex != 0.55 || res.Confidence != 0.55 {
		t.Errorf("confidence = %v/%v, want 0.55", res.Confidence, res.ReliabilityIndex)
	}
	if got := res.RuleVerdicts["C1"]; got != string(policy.VerdictEnhancedDueDiligence) {
		t.Errorf("RuleVerdicts[C1] = %s, want %s", got, policy.VerdictEnhancedDueDiligence)
	}
	if !res.Pending() {
		t.Errorf("State = %s, want pending", res.State)
	}
}

// TestGate_ReviewCycle tests escalation, review and re-evaluation of the
// same case.
func TestGate_ReviewCycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := appealRecord("APL-C", caserecord.OutcomeEscalate, false)

	for range 2 {
		res, err := h.gate.Evaluate(ctx, rec)
		if err != nil {
			t.Fatalf("Evaluate() failed: %v", err)
		}
		if res.State != governance.StateEscalatedPendingReview {
			t.Fatalf("State = %s, want %s", res.State, governance.StateEscalatedPendingReview)
		}
	}
	pending, err := h.queue.List(ctx, review.StatusPending)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending reviews = %d, want 1", len(pending))
	}

	if _, err := h.queue.Submit(ctx, "APL-C", "alice", review.DecisionDeny, "clinical justification confirmed"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	res, err := h.gate.Evaluate(ctx, rec)
	if err != nil {
		t.Fatalf("Evaluate() after review failed: %v", err)
	}
	if res.State != governance.StateEscalatedCompleted {
		t.Errorf("State = %s, want %s", res.State, governance.StateEscalatedCompleted)
	}
	if res.FinalDecision != "DENY" {
		t.Errorf("FinalDecision = %s, want DENY", res.FinalDecision)
	}
	if res.Confidence != governance.ReviewedConfidence {
		t.Errorf("Confidence = %v, want %v", res.Confidence, governance.ReviewedConfidence)
	}
	if res.ReviewStatus != caserecord.ReviewCompleted {
		t.Errorf("ReviewStatus = %s, want COMPLETED", res.ReviewStatus)
	}
	if res.DecisionReason != "Human Review Decision: clinical justification confirmed" {
		t.Errorf("DecisionReason = %q", res.DecisionReason)
	}

	// A further run changes nothing.
	again, err := h.gate.Evaluate(ctx, rec)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	var keys []string
	for _, e := range again.Timeline {
		keys = append(keys, e.Key())
	}
	wantKeys := []string{
		string(caserecord.EventPolicyEvaluation),
		string(caserecord.EventEscalationQueued),
		governance.CycleKey(governance.StateEscalatedPendingReview),
		string(caserecord.EventHumanReview),
		governance.CycleKey(governance.StateEscalatedCompleted),
	}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}

	wantStates := []string{
		string(governance.StateEscalatedPendingReview),
		string(governance.StateEscalatedPendingReview),
		string(governance.StateEscalatedCompleted),
		string(governance.StateEscalatedCompleted),
	}
	if diff := cmp.Diff(wantStates, h.observer.states); diff != "" {
		t.Errorf("observed states mismatch (-want +got):\n%s", diff)
	}
}

// TestGate_RequestMoreInfo tests that a request for more information is
// adopted as the final decision.
func TestGate_RequestMoreInfo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := appealRecord("APL-I", caserecord.OutcomeEscalate, false)

	if _, err := h.gate.Evaluate(ctx, rec); err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if _, err := h.queue.Submit(ctx, "APL-I", "bob", review.DecisionRequestMoreInfo, "need imaging report"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	res, err := h.gate.Evaluate(ctx, rec)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if res.FinalDecision != string(review.DecisionRequestMoreInfo) || res.Reviewer != "bob" {
		t.Errorf("result = %s by %s", res.FinalDecision, res.Reviewer)
	}
}

// TestGate_Malformed tests inputs the gate refuses to govern.
func TestGate_Malformed(t *testing.T) {
	noDecision := appealRecord("APL-X", caserecord.OutcomeApprove, false)
	noDecision.Decision = nil

	badOutcome := appealRecord("APL-X", caserecord.OutcomeApprove, false)
	badOutcome.Decision.Outcome = "MAYBE"

	tests := []struct {
		name string
		rec  *caserecord.Record
	}{
		{"nil record", nil},
		{"no case id", &caserecord.Record{Variant: caserecord.VariantAppeals}},
		{"no decision", noDecision},
		{"unknown outcome", badOutcome},
		{"no scores", fincrimeRecord("FC-X", nil, caserecord.OutcomeApprove)},
		{"negative score", fincrimeRecord("FC-X", map[string]float64{"C1": -1}, caserecord.OutcomeApprove)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.gate.Evaluate(context.Background(), tt.rec)
			if !policy.IsMalformedFacts(err) {
				t.Fatalf("Evaluate() error = %v, want malformed facts", err)
			}
			if len(h.observer.states) != 0 {
				t.Errorf("observer saw %v", h.observer.states)
			}
		})
	}
}

// TestGate_InputNotMutated tests that the caller's record is left alone.
func TestGate_InputNotMutated(t *testing.T) {
	h := newHarness(t)
	rec := appealRecord("APL-N", caserecord.OutcomeEscalate, false)
	before := rec.Clone()

	if _, err := h.gate.Evaluate(context.Background(), rec); err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if diff := cmp.Diff(before, rec); diff != "" {
		t.Errorf("record mutated (-before +after):\n%s", diff)
	}
}

// TestGate_Artifacts tests the persisted governed record and final decision.
func TestGate_Artifacts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.gate.Evaluate(ctx, appealRecord("APL-A", caserecord.OutcomeApprove, false))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("Artifacts = %d, want 2", len(res.Artifacts))
	}

	var governed caserecord.Record
	if err := artifacts.GetJSON(ctx, h.artifacts, "APL-A", governance.GovernedRecordArtifact, &governed); err != nil {
		t.Fatalf("GetJSON(governed) failed: %v", err)
	}
	if governed.Confidence == nil || *governed.Confidence != 0.80 {
		t.Errorf("governed confidence = %v, want 0.80", governed.Confidence)
	}
	if governed.ReviewStatus != caserecord.ReviewNotRequired {
		t.Errorf("governed ReviewStatus = %s", governed.ReviewStatus)
	}
	if len(governed.Timeline) != 2 {
		t.Errorf("governed timeline = %d events, want 2", len(governed.Timeline))
	}

	var final governance.Result
	if err := artifacts.GetJSON(ctx, h.artifacts, "APL-A", governance.FinalDecisionArtifact, &final); err != nil {
		t.Fatalf("GetJSON(final) failed: %v", err)
	}
	if final.FinalDecision != "APPROVE" || final.Timeline != nil {
		t.Errorf("final decision artifact = %+v", final)
	}
}
