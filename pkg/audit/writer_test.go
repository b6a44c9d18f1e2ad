package audit_test

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/audit/storage"
	"mercator-hq/arbiter/pkg/caserecord"
)

type countingObserver struct {
	written    map[string]int
	duplicates map[string]int
}

func (o *countingObserver) RecordAuditEvent(kind string) { o.written[kind]++ }
func (o *countingObserver) RecordAuditDuplicate(kind string) { o.duplicates[kind]++ }

// TestWriter_Record tests that re-recording a timeline adds nothing.
func TestWriter_Record(t *testing.T) {
	obs := &countingObserver{written: map[string]int{}, duplicates: map[string]int{}}
	w := audit.NewWriter(storage.NewMemoryStore(), audit.WithObserver(obs))
	ctx := context.Background()

	events := []caserecord.Event{
		caserecord.NewEvent("FC-1", caserecord.EventIntakeCompleted, nil),
		caserecord.NewEvent("FC-1", caserecord.EventRiskScoringCompleted, nil),
	}

	written, err := w.Record(ctx, events...)
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("Expected 2 written events, got %d", len(written))
	}

	// Replay with fresh IDs, as a resumed run would produce
	replay := []caserecord.Event{
		caserecord.NewEvent("FC-1", caserecord.EventIntakeCompleted, nil),
		caserecord.NewEvent("FC-1", caserecord.EventRiskScoringCompleted, nil),
		caserecord.NewEvent("FC-1", caserecord.EventPolicyEvaluation, nil),
	}
	written, err = w.Record(ctx, replay...)
	if err != nil {
		t.Fatalf("Record(replay) failed: %v", err)
	}
	if len(written) != 1 || written[0].Kind != caserecord.EventPolicyEvaluation {
		t.Errorf("Expected only POLICY_EVALUATION to be written, got %v", written)
	}

	timeline, err := w.Timeline(ctx, "FC-1")
	if err != nil {
		t.Fatalf("Timeline() failed: %v", err)
	}
	if len(timeline) != 3 {
		t.Errorf("Expected 3 timeline entries, got %d", len(timeline))
	}
	if timeline[0].ID != events[0].ID {
		t.Error("Original intake event was replaced")
	}

	if obs.written["INTAKE_COMPLETED"] != 1 || obs.duplicates["INTAKE_COMPLETED"] != 1 {
		t.Errorf("Unexpected observer counts: %+v / %+v", obs.written, obs.duplicates)
	}

	seen, err := w.Seen(ctx, "FC-1", "RISK_SCORING_COMPLETED")
	if err != nil || !seen {
		t.Errorf("Seen() = %v, %v; want true, nil", seen, err)
	}
}

// TestWriter_Record_Invalid tests rejection of incomplete events.
func TestWriter_Record_Invalid(t *testing.T) {
	w := audit.NewWriter(storage.NewMemoryStore())

	_, err := w.Record(context.Background(), caserecord.Event{Kind: caserecord.EventIntakeCompleted})
	if !errors.Is(err, audit.ErrInvalidEvent) {
		t.Errorf("Expected ErrInvalidEvent, got %v", err)
	}
}
