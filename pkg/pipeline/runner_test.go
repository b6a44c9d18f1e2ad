package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/audit"
	auditstorage "mercator-hq/arbiter/pkg/audit/storage"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/pipeline"
)

type stageObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *stageObserver) RecordStage(stage, status string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[stage+"/"+status]++
}

// appendStage records its name in the "trace" extension.
func appendStage(name string, milestone caserecord.EventKind, calls *atomic.Int32) pipeline.Stage {
	return pipeline.NewStage(name, milestone, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
		if calls != nil {
			calls.Add(1)
		}
		var trace []string
		if _, err := rec.Get("trace", &trace); err != nil {
			return nil, err
		}
		if err := rec.Set("trace", append(trace, name)); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

func newRecord(caseID string) *caserecord.Record {
	return caserecord.New(&caserecord.Definition{CaseID: caseID, Variant: caserecord.VariantAppeals})
}

// TestRunner_Run tests ordered execution and milestone recording.
func TestRunner_Run(t *testing.T) {
	writer := audit.NewWriter(auditstorage.NewMemoryStore())
	obs := &stageObserver{counts: map[string]int{}}
	runner, err := pipeline.NewRunner([]pipeline.Stage{
		appendStage("intake", caserecord.EventIntakeCompleted, nil),
		appendStage("reasoning", caserecord.EventReasoningCompleted, nil),
		appendStage("decision", caserecord.EventDecisioningCompleted, nil),
	}, pipeline.WithAuditWriter(writer), pipeline.WithObserver(obs))
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	ctx := context.Background()

	out, err := runner.Run(ctx, newRecord("CASE-1"))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var trace []string
	if _, err := out.Get("trace", &trace); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"intake", "reasoning", "decision"}, trace); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}

	wantKinds := []caserecord.EventKind{
		caserecord.EventIntakeCompleted,
		caserecord.EventReasoningCompleted,
		caserecord.EventDecisioningCompleted,
	}
	var recordKinds []caserecord.EventKind
	for _, e := range out.Timeline {
		recordKinds = append(recordKinds, e.Kind)
	}
	if diff := cmp.Diff(wantKinds, recordKinds); diff != "" {
		t.Errorf("record timeline mismatch (-want +got):\n%s", diff)
	}

	timeline, err := writer.Timeline(ctx, "CASE-1")
	if err != nil {
		t.Fatalf("Timeline() failed: %v", err)
	}
	var auditKinds []caserecord.EventKind
	for _, e := range timeline {
		auditKinds = append(auditKinds, e.Kind)
		if e.Detail["stage"] == nil {
			t.Errorf("event %s has no stage detail", e.Kind)
		}
	}
	if diff := cmp.Diff(wantKinds, auditKinds); diff != "" {
		t.Errorf("audit timeline mismatch (-want +got):\n%s", diff)
	}

	if obs.counts["decision/ok"] != 1 {
		t.Errorf("observer counts = %v", obs.counts)
	}
	if diff := cmp.Diff([]string{"intake", "reasoning", "decision"}, runner.Stages()); diff != "" {
		t.Errorf("Stages() mismatch (-want +got):\n%s", diff)
	}
}

// TestRunner_Failures tests the stage failure conditions.
func TestRunner_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fn      pipeline.StageFunc
		wantErr error
	}{
		{
			name: "stage error",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				return nil, boom
			},
			wantErr: boom,
		},
		{
			name: "nil record",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				return nil, nil
			},
			wantErr: pipeline.ErrNilRecord,
		},
		{
			name: "case id changed",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.CaseID = "OTHER"
				return rec, nil
			},
			wantErr: pipeline.ErrCaseIDChanged,
		},
		{
			name: "extension removed",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				delete(rec.Extensions, "trace")
				return rec, nil
			},
			wantErr: pipeline.ErrFieldRemoved,
		},
		{
			name: "timeline truncated",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.Timeline = nil
				return rec, nil
			},
			wantErr: pipeline.ErrFieldRemoved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var after atomic.Int32
			writer := audit.NewWriter(auditstorage.NewMemoryStore())
			runner, err := pipeline.NewRunner([]pipeline.Stage{
				appendStage("intake", caserecord.EventIntakeCompleted, nil),
				pipeline.NewStage("reasoning", caserecord.EventReasoningCompleted, tt.fn),
				appendStage("decision", caserecord.EventDecisioningCompleted, &after),
			}, pipeline.WithAuditWriter(writer))
			if err != nil {
				t.Fatalf("NewRunner() failed: %v", err)
			}

			_, err = runner.Run(context.Background(), newRecord("CASE-F"))
			var sf *pipeline.StageFailure
			if !errors.As(err, &sf) {
				t.Fatalf("Run() error = %v, want *StageFailure", err)
			}
			if sf.Stage != "reasoning" || sf.CaseID != "CASE-F" {
				t.Errorf("StageFailure = %+v", sf)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if after.Load() != 0 {
				t.Error("stage after the failure ran")
			}

			seen, err := writer.Seen(context.Background(), "CASE-F", string(caserecord.EventReasoningCompleted))
			if err != nil {
				t.Fatalf("Seen() failed: %v", err)
			}
			if seen {
				t.Error("failed stage milestone was recorded")
			}
		})
	}
}

// TestRunner_InputNotMutated tests that the caller's record is left alone.
func TestRunner_InputNotMutated(t *testing.T) {
	runner, err := pipeline.NewRunner([]pipeline.Stage{
		pipeline.NewStage("mutate", caserecord.EventIntakeCompleted, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
			rec.Reasoning = "changed"
			rec.RiskFacts.Scores["C1"] = 99
			return rec, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}

	in := newRecord("CASE-M")
	in.RiskFacts.Scores = map[string]float64{"C1": 1}
	before := in.Clone()

	out, err := runner.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input record mutated (-before +after):\n%s", diff)
	}
	if out.Reasoning != "changed" || out.RiskFacts.Scores["C1"] != 99 {
		t.Errorf("output record = %+v", out)
	}
}

// TestRunner_Resume tests that completed stages are restored from their
// checkpoints instead of running again.
func TestRunner_Resume(t *testing.T) {
	writer := audit.NewWriter(auditstorage.NewMemoryStore())
	checkpoints := artifacts.NewMemoryStore()
	ctx := context.Background()

	var intakeCalls, reasoningCalls atomic.Int32
	var failReasoning atomic.Bool
	failReasoning.Store(true)

	reasoning := pipeline.NewStage("reasoning", caserecord.EventReasoningCompleted, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
		reasoningCalls.Add(1)
		if failReasoning.Load() {
			return nil, errors.New("provider unavailable")
		}
		rec.Reasoning = "ok"
		return rec, nil
	})

	obs := &stageObserver{counts: map[string]int{}}
	runner, err := pipeline.NewRunner([]pipeline.Stage{
		appendStage("intake", caserecord.EventIntakeCompleted, &intakeCalls),
		reasoning,
	}, pipeline.WithAuditWriter(writer), pipeline.WithCheckpoints(checkpoints), pipeline.WithObserver(obs))
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}

	if _, err := runner.Run(ctx, newRecord("CASE-R")); err == nil {
		t.Fatal("Run() succeeded, want failure")
	}

	failReasoning.Store(false)
	out, err := runner.Run(ctx, newRecord("CASE-R"))
	if err != nil {
		t.Fatalf("Run() after failure failed: %v", err)
	}

	if got := intakeCalls.Load(); got != 1 {
		t.Errorf("intake ran %d times, want 1", got)
	}
	if got := reasoningCalls.Load(); got != 2 {
		t.Errorf("reasoning ran %d times, want 2", got)
	}
	if obs.counts["intake/restored"] != 1 {
		t.Errorf("observer counts = %v", obs.counts)
	}

	var trace []string
	if _, err := out.Get("trace", &trace); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"intake"}, trace); diff != "" {
		t.Errorf("restored state mismatch (-want +got):\n%s", diff)
	}

	timeline, err := writer.Timeline(ctx, "CASE-R")
	if err != nil {
		t.Fatalf("Timeline() failed: %v", err)
	}
	if len(timeline) != 2 {
		t.Errorf("timeline has %d events, want 2", len(timeline))
	}

	refs, err := checkpoints.List(ctx, "CASE-R")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("checkpoints = %d, want 2", len(refs))
	}
}

// TestRunner_MissingCheckpoint tests that an audited stage without a
// checkpoint runs again.
func TestRunner_MissingCheckpoint(t *testing.T) {
	writer := audit.NewWriter(auditstorage.NewMemoryStore())
	ctx := context.Background()

	var calls atomic.Int32
	stages := []pipeline.Stage{appendStage("intake", caserecord.EventIntakeCompleted, &calls)}

	first, err := pipeline.NewRunner(stages, pipeline.WithAuditWriter(writer), pipeline.WithCheckpoints(artifacts.NewMemoryStore()))
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	if _, err := first.Run(ctx, newRecord("CASE-C")); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	second, err := pipeline.NewRunner(stages, pipeline.WithAuditWriter(writer), pipeline.WithCheckpoints(artifacts.NewMemoryStore()))
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	if _, err := second.Run(ctx, newRecord("CASE-C")); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("intake ran %d times, want 2", got)
	}
	timeline, err := writer.Timeline(ctx, "CASE-C")
	if err != nil {
		t.Fatalf("Timeline() failed: %v", err)
	}
	if len(timeline) != 1 {
		t.Errorf("timeline has %d events, want 1", len(timeline))
	}
}

// TestNewRunner_Invalid tests stage list validation.
func TestNewRunner_Invalid(t *testing.T) {
	noop := func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) { return rec, nil }

	tests := []struct {
		name   string
		stages []pipeline.Stage
	}{
		{"nil stage", []pipeline.Stage{nil}},
		{"no name", []pipeline.Stage{pipeline.NewStage("", caserecord.EventIntakeCompleted, noop)}},
		{"no milestone", []pipeline.Stage{pipeline.NewStage("intake", "", noop)}},
		{"duplicate", []pipeline.Stage{
			pipeline.NewStage("intake", caserecord.EventIntakeCompleted, noop),
			pipeline.NewStage("intake", caserecord.EventReasoningCompleted, noop),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pipeline.NewRunner(tt.stages); err == nil {
				t.Error("NewRunner() succeeded, want error")
			}
		})
	}
}

// TestRunner_InvalidRecord tests the initial record check.
func TestRunner_InvalidRecord(t *testing.T) {
	runner, err := pipeline.NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	if _, err := runner.Run(context.Background(), nil); !errors.Is(err, pipeline.ErrInvalidRecord) {
		t.Errorf("Run(nil) error = %v, want ErrInvalidRecord", err)
	}
	if _, err := runner.Run(context.Background(), &caserecord.Record{}); !errors.Is(err, pipeline.ErrInvalidRecord) {
		t.Errorf("Run(empty) error = %v, want ErrInvalidRecord", err)
	}
}

// TestRunner_StageTimeout tests that a slow stage fails with the deadline.
func TestRunner_StageTimeout(t *testing.T) {
	slow := pipeline.NewStage("reasoning", caserecord.EventReasoningCompleted, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	runner, err := pipeline.NewRunner([]pipeline.Stage{slow}, pipeline.WithStageTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}

	_, err = runner.Run(context.Background(), newRecord("CASE-T"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if !pipeline.IsStageFailure(err) {
		t.Errorf("Run() error = %v, want a stage failure", err)
	}
}

// TestRunner_FieldRemoved tests that a stage may overwrite fields set by
// earlier stages but not drop them.
func TestRunner_FieldRemoved(t *testing.T) {
	populate := pipeline.NewStage("scoring", caserecord.EventRiskScoringCompleted, func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
		rec.RiskFacts.Scores = map[string]float64{"C1": 9}
		rec.RiskFacts.Anomalies = map[string]int{"C1": 2}
		rec.Decision = &caserecord.Decision{Outcome: caserecord.OutcomeEscalate, Reason: "high risk"}
		if err := rec.Set("entities", []string{"C1"}); err != nil {
			return nil, err
		}
		return rec, nil
	})

	tests := []struct {
		name    string
		fn      pipeline.StageFunc
		wantErr bool
	}{
		{
			name: "overwrite allowed",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.RiskFacts.Scores["C1"] = 4
				rec.Decision = &caserecord.Decision{Outcome: caserecord.OutcomeApprove, Reason: "rescored"}
				return rec, rec.Set("entities", []string{"C1", "C2"})
			},
		},
		{
			name: "scores cleared",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.RiskFacts.Scores = nil
				return rec, nil
			},
			wantErr: true,
		},
		{
			name: "anomaly entry deleted",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				delete(rec.RiskFacts.Anomalies, "C1")
				return rec, nil
			},
			wantErr: true,
		},
		{
			name: "decision cleared",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.Decision = nil
				return rec, nil
			},
			wantErr: true,
		},
		{
			name: "extensions replaced",
			fn: func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
				rec.Extensions = nil
				return rec, nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := pipeline.NewRunner([]pipeline.Stage{
				populate,
				pipeline.NewStage("decision", caserecord.EventDecisioningCompleted, tt.fn),
			})
			if err != nil {
				t.Fatalf("NewRunner() failed: %v", err)
			}

			out, err := runner.Run(context.Background(), newRecord("CASE-R"))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Run() failed: %v", err)
				}
				if out.RiskFacts.Scores["C1"] != 4 {
					t.Errorf("Scores[C1] = %v, want 4", out.RiskFacts.Scores["C1"])
				}
				return
			}

			if !errors.Is(err, pipeline.ErrFieldRemoved) {
				t.Fatalf("Run() error = %v, want ErrFieldRemoved", err)
			}
			var sf *pipeline.StageFailure
			if !errors.As(err, &sf) || sf.Stage != "decision" {
				t.Errorf("Run() error = %v, want StageFailure at decision", err)
			}
		})
	}
}
