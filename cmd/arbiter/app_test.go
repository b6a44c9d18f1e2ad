package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/governance"
	"mercator-hq/arbiter/pkg/reasoning"
	"mercator-hq/arbiter/pkg/review"
)

const appealInput = `{
	"patient_id": "P-200",
	"urgency": "medium",
	"documents": {"clinical_notes.txt": "Chronic knee pain, failed physiotherapy."}
}`

// memoryConfig returns a configuration with in-memory backends and a
// static reasoning provider.
func memoryConfig(t *testing.T, reasoningText string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Audit.Backend = "memory"
	cfg.Review.Backend = "memory"
	cfg.Artifacts.Backend = "memory"
	cfg.Reasoning.Mode = "static"
	cfg.Reasoning.StaticText = reasoningText
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func appealDefinition(caseID string) *caserecord.Definition {
	return &caserecord.Definition{
		CaseID:  caseID,
		Variant: caserecord.VariantAppeals,
		Input:   json.RawMessage(appealInput),
	}
}

// TestApp_EvaluateAppeal tests the wired pipeline end to end.
func TestApp_EvaluateAppeal(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
		wantState governance.State
		wantCode  int
	}{
		{
			name:      "approve",
			reasoning: "Knee arthroscopy is medically necessary.",
			wantState: governance.StateApproved,
			wantCode:  cli.ExitOK,
		},
		{
			name:      "deny",
			reasoning: "Surgery is not medically necessary before injections.",
			wantState: governance.StateDenied,
			wantCode:  cli.ExitOK,
		},
		{
			name:      "mismatch escalates",
			reasoning: "The imaging report belongs to a different patient.",
			wantState: governance.StateEscalatedPendingReview,
			wantCode:  cli.ExitPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, memoryConfig(t, tt.reasoning))
			p, err := a.buildPipeline()
			if err != nil {
				t.Fatalf("buildPipeline() failed: %v", err)
			}

			results := p.RunBatch(context.Background(), []*caserecord.Definition{appealDefinition("APP-CLI")}, 1)
			report := newRunReport(results)
			if len(report.Cases) != 1 || report.Cases[0].Result == nil {
				t.Fatalf("report = %+v", report)
			}
			if got := report.Cases[0].Result.State; got != tt.wantState {
				t.Errorf("State = %s, want %s", got, tt.wantState)
			}
			if got := cli.ExitCode(report.exitError()); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

// TestApp_ReviewThenResume tests the escalation cycle through the app's
// queue.
func TestApp_ReviewThenResume(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, memoryConfig(t, "Findings are inconsistent across documents."))
	p, err := a.buildPipeline()
	if err != nil {
		t.Fatalf("buildPipeline() failed: %v", err)
	}

	def := appealDefinition("APP-RV")
	res, err := p.Evaluate(ctx, def)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !res.Pending() {
		t.Fatalf("State = %s, want pending review", res.State)
	}

	if _, err := a.queue.Submit(ctx, "APP-RV", "dr.lee", review.DecisionApprove, "reconciled"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	res, err = p.Evaluate(ctx, def)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if res.State != governance.StateEscalatedCompleted {
		t.Errorf("State = %s, want ESCALATED_COMPLETED", res.State)
	}
	if res.FinalDecision != "APPROVE" || res.Confidence != governance.ReviewedConfidence {
		t.Errorf("result = %+v", res)
	}

	events, err := a.writer.Timeline(ctx, "APP-RV")
	if err != nil {
		t.Fatalf("Timeline() failed: %v", err)
	}
	humanReviews := 0
	for _, e := range events {
		if e.Kind == caserecord.EventHumanReview {
			humanReviews++
		}
	}
	if humanReviews != 1 {
		t.Errorf("HUMAN_REVIEW events = %d, want 1", humanReviews)
	}
}

// TestApp_Backends tests backend selection errors.
func TestApp_Backends(t *testing.T) {
	ctx := context.Background()

	if _, err := openAuditStore(ctx, &config.AuditConfig{Backend: "mongo"}); err == nil {
		t.Error("openAuditStore() accepted an unknown backend")
	}
	if _, err := openReviewStore(&config.ReviewConfig{Backend: "etcd"}); err == nil {
		t.Error("openReviewStore() accepted an unknown backend")
	}
	if _, err := openArtifactStore(ctx, &config.ArtifactsConfig{Backend: "ftp"}); err == nil {
		t.Error("openArtifactStore() accepted an unknown backend")
	}

	dir := t.TempDir()
	auditStore, err := openAuditStore(ctx, &config.AuditConfig{
		Backend: "sqlite",
		SQLite:  config.SQLiteConfig{Path: filepath.Join(dir, "db", "audit.db"), MaxOpenConns: 2, MaxIdleConns: 1},
	})
	if err != nil {
		t.Fatalf("openAuditStore(sqlite) failed: %v", err)
	}
	defer auditStore.Close()

	reviewStore, err := openReviewStore(&config.ReviewConfig{
		Backend: "sqlite",
		SQLite:  config.ReviewSQLiteConfig{Path: filepath.Join(dir, "db", "review.db")},
	})
	if err != nil {
		t.Fatalf("openReviewStore(sqlite) failed: %v", err)
	}
	defer reviewStore.Close()

	artifactStore, err := openArtifactStore(ctx, &config.ArtifactsConfig{Backend: "filesystem", Root: filepath.Join(dir, "artifacts")})
	if err != nil {
		t.Fatalf("openArtifactStore(filesystem) failed: %v", err)
	}
	if err := artifactStore.Ping(ctx); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

// TestNewReasoningProvider tests provider selection.
func TestNewReasoningProvider(t *testing.T) {
	static, err := newReasoningProvider(&config.ReasoningConfig{Mode: "static", StaticText: "ok"})
	if err != nil {
		t.Fatalf("newReasoningProvider(static) failed: %v", err)
	}
	if _, ok := static.(*reasoning.Static); !ok {
		t.Errorf("static mode returned %T", static)
	}

	if _, err := newReasoningProvider(&config.ReasoningConfig{Mode: "http"}); err == nil {
		t.Error("http mode without endpoint accepted")
	}

	primary := config.EndpointConfig{BaseURL: "https://llm.example.com/v1", Model: "primary-model"}
	single, err := newReasoningProvider(&config.ReasoningConfig{Mode: "http", Primary: primary})
	if err != nil {
		t.Fatalf("newReasoningProvider(http) failed: %v", err)
	}
	if _, ok := single.(*reasoning.HTTPProvider); !ok {
		t.Errorf("http mode returned %T", single)
	}

	withFallback, err := newReasoningProvider(&config.ReasoningConfig{
		Mode:     "http",
		Primary:  primary,
		Fallback: config.EndpointConfig{Model: "fallback-model"},
	})
	if err != nil {
		t.Fatalf("newReasoningProvider(fallback) failed: %v", err)
	}
	if _, ok := withFallback.(*reasoning.Fallback); !ok {
		t.Errorf("fallback config returned %T", withFallback)
	}
}

// TestNewClassifier tests phrase overrides.
func TestNewClassifier(t *testing.T) {
	c := newClassifier(&config.ClassifierConfig{MismatchPhrases: []string{"wrong member id"}})

	if !c.DetectMismatch("The claim lists the wrong member ID.") {
		t.Error("override phrase not detected")
	}
	if c.DetectMismatch("Findings are inconsistent.") {
		t.Error("default mismatch phrase still active after override")
	}
	if len(c.ApprovePhrases) == 0 || len(c.DenyPhrases) == 0 {
		t.Error("unset phrase lists lost their defaults")
	}
}

// TestHealthChecker tests that every backend is probed.
func TestHealthChecker(t *testing.T) {
	a := newTestApp(t, memoryConfig(t, "ok"))
	checker := a.healthChecker()

	got := checker.ListChecks()
	want := []string{"artifact_store", "audit_store", "review_store"}
	if len(got) != len(want) {
		t.Fatalf("ListChecks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListChecks()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if status := checker.CheckReadiness(context.Background()); status.Status != "ready" {
		t.Errorf("readiness = %+v", status)
	}
}

// TestEvaluateFile tests inbox file evaluation.
func TestEvaluateFile(t *testing.T) {
	a := newTestApp(t, memoryConfig(t, "Physical therapy is medically necessary."))
	p, err := a.buildPipeline()
	if err != nil {
		t.Fatalf("buildPipeline() failed: %v", err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "APP-IN.json")
	doc := `{"case_id": "APP-IN", "variant": "appeals", "input": ` + appealInput + `}`
	if err := os.WriteFile(good, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	bad := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(bad, []byte(`{"case_id": "X"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	report := evaluateFile(context.Background(), p, good)
	if report.Cases[0].Result == nil || report.Cases[0].Result.State != governance.StateApproved {
		t.Errorf("good file report = %+v", report.Cases[0])
	}

	report = evaluateFile(context.Background(), p, bad)
	if report.Cases[0].Error == "" {
		t.Error("invalid file was not reported as failed")
	}
	if cli.ExitCode(report.exitError()) != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", cli.ExitCode(report.exitError()), cli.ExitFailure)
	}
}
