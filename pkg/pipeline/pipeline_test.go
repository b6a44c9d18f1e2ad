package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/governance"
	"mercator-hq/arbiter/pkg/pipeline"
	"mercator-hq/arbiter/pkg/review"
	reviewstorage "mercator-hq/arbiter/pkg/review/storage"
)

func decideStage(outcome caserecord.Outcome) pipeline.Stage {
	return pipeline.NewStage("decision", caserecord.EventDecisioningCompleted, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
		rec.Decision = &caserecord.Decision{Outcome: outcome, Reason: "fixed"}
		rec.RiskFacts.Assessment = outcome
		return rec, nil
	})
}

func newPipeline(t *testing.T, outcome caserecord.Outcome) *pipeline.Pipeline {
	t.Helper()
	runner, err := pipeline.NewRunner([]pipeline.Stage{decideStage(outcome)})
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	gate, err := governance.NewGate(review.NewQueue(reviewstorage.NewMemoryStore()))
	if err != nil {
		t.Fatalf("NewGate() failed: %v", err)
	}
	return pipeline.New(gate, map[caserecord.Variant]*pipeline.Runner{caserecord.VariantAppeals: runner})
}

// TestPipeline_Evaluate tests a single case through runner and gate.
func TestPipeline_Evaluate(t *testing.T) {
	p := newPipeline(t, caserecord.OutcomeDeny)

	res, err := p.Evaluate(context.Background(), &caserecord.Definition{CaseID: "APL-1", Variant: caserecord.VariantAppeals})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if res.State != governance.StateDenied {
		t.Errorf("State = %s, want DENIED", res.State)
	}

	_, err = p.Evaluate(context.Background(), &caserecord.Definition{CaseID: "FC-1", Variant: caserecord.VariantFinancialCrime})
	if !errors.Is(err, pipeline.ErrUnknownVariant) {
		t.Errorf("Evaluate() error = %v, want ErrUnknownVariant", err)
	}
}

// TestPipeline_RunBatch tests concurrent evaluation with ordered results.
func TestPipeline_RunBatch(t *testing.T) {
	p := newPipeline(t, caserecord.OutcomeApprove)

	var defs []*caserecord.Definition
	for i := range 20 {
		variant := caserecord.VariantAppeals
		if i%5 == 4 {
			variant = caserecord.VariantFinancialCrime
		}
		defs = append(defs, &caserecord.Definition{CaseID: fmt.Sprintf("CASE-%02d", i), Variant: variant})
	}

	results := p.RunBatch(context.Background(), defs, 4)
	if len(results) != len(defs) {
		t.Fatalf("RunBatch() returned %d results, want %d", len(results), len(defs))
	}
	for i, r := range results {
		if r.CaseID != defs[i].CaseID {
			t.Errorf("results[%d].CaseID = %s, want %s", i, r.CaseID, defs[i].CaseID)
		}
		if i%5 == 4 {
			if r.Err == nil {
				t.Errorf("results[%d] succeeded for unregistered variant", i)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("results[%d] failed: %v", i, r.Err)
			continue
		}
		if r.Result.State != governance.StateApproved || r.Result.CaseID != defs[i].CaseID {
			t.Errorf("results[%d] = %+v", i, r.Result)
		}
	}
}

// TestPipeline_RunBatchFunc tests that the callback sees every case.
func TestPipeline_RunBatchFunc(t *testing.T) {
	p := newPipeline(t, caserecord.OutcomeDeny)

	var defs []*caserecord.Definition
	for i := range 6 {
		defs = append(defs, &caserecord.Definition{CaseID: fmt.Sprintf("CB-%d", i), Variant: caserecord.VariantAppeals})
	}

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	p.RunBatchFunc(context.Background(), defs, 3, func(r pipeline.BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		seen[r.CaseID] = true
	})

	if len(seen) != len(defs) {
		t.Errorf("callback saw %d cases, want %d", len(seen), len(defs))
	}
}
