package appeals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/pipeline"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/reasoning"
)

// Extension keys written by the appeal stages.
const (
	KeyInput          = "appeal"
	KeyReasoningModel = "reasoning_model"
)

// ReasoningArtifact is the artifact name of the reasoning output.
const ReasoningArtifact = "reasoning_outputs.json"

// Input is the appeal part of a case definition.
type Input struct {
	PatientID     string                    `json:"patient_id,omitempty"`
	Urgency       string                    `json:"urgency,omitempty"`
	Documents     map[string]string         `json:"documents"`
	ImageFindings map[string]map[string]any `json:"image_findings,omitempty"`
}

// ReasoningOutput is persisted after the reasoning stage.
type ReasoningOutput struct {
	ModelUsed        string `json:"model_used"`
	Reasoning        string `json:"reasoning"`
	EvidenceMismatch bool   `json:"evidence_mismatch"`
	MismatchSource   string `json:"mismatch_source"`
}

// Stage names.
const (
	StageIntake    = "intake"
	StageReasoning = "reasoning"
	StageDecision  = "decision"
)

// Config holds the collaborators of the appeal stages.
type Config struct {
	// Provider produces the medical necessity reasoning. Required.
	Provider reasoning.Provider

	// Classifier reads the reasoning. Default: policy.NewPhraseClassifier()
	Classifier policy.Classifier

	// Artifacts receives reasoning_outputs.json when set.
	Artifacts artifacts.Store
}

// Stages returns the appeal stages in execution order.
func Stages(cfg Config) ([]pipeline.Stage, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("appeals: reasoning provider is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = policy.NewPhraseClassifier()
	}
	s := &stages{cfg: cfg, logger: slog.Default().With("component", "appeals")}

	return []pipeline.Stage{
		pipeline.NewDescribedStage(StageIntake, caserecord.EventIntakeCompleted, s.intake, describeIntake),
		pipeline.NewDescribedStage(StageReasoning, caserecord.EventReasoningCompleted, s.reason, describeReasoning),
		pipeline.NewDescribedStage(StageDecision, caserecord.EventDecisioningCompleted, s.decide, describeDecision),
	}, nil
}

type stages struct {
	cfg    Config
	logger *slog.Logger
}

func (s *stages) intake(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var in Input
	if err := json.Unmarshal(rec.Input, &in); err != nil {
		return nil, fmt.Errorf("decode appeal input: %w", err)
	}
	if len(in.Documents) == 0 {
		return nil, fmt.Errorf("appeal has no documents")
	}
	if in.Urgency == "" {
		in.Urgency = "medium"
	}
	if err := rec.Set(KeyInput, in); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) reason(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var in Input
	if ok, err := rec.Get(KeyInput, &in); err != nil || !ok {
		return nil, fmt.Errorf("appeal intake output missing")
	}

	resp, err := s.cfg.Provider.Produce(ctx, &reasoning.Request{Prompt: buildPrompt(&in)})
	if err != nil {
		return nil, err
	}

	mismatch := s.cfg.Classifier.DetectMismatch(resp.Text)
	source := "phrase"
	if resp.EvidenceMismatch != nil {
		mismatch = *resp.EvidenceMismatch
		source = "structured"
	}

	rec.Reasoning = resp.Text
	rec.RiskFacts.EvidenceMismatch = mismatch
	if err := rec.Set(KeyReasoningModel, resp.Model); err != nil {
		return nil, err
	}

	if s.cfg.Artifacts != nil {
		out := ReasoningOutput{
			ModelUsed:        resp.Model,
			Reasoning:        resp.Text,
			EvidenceMismatch: mismatch,
			MismatchSource:   source,
		}
		if _, err := artifacts.PutJSON(ctx, s.cfg.Artifacts, rec.CaseID, ReasoningArtifact, out); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "appeal reasoning completed",
		"model", resp.Model,
		"evidence_mismatch", mismatch,
		"mismatch_source", source,
	)
	return rec, nil
}

func (s *stages) decide(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	decision := policy.DecideAppeal(rec.RiskFacts.EvidenceMismatch, rec.Reasoning, s.cfg.Classifier)
	rec.Decision = &decision
	rec.RiskFacts.Assessment = decision.Outcome
	return rec, nil
}

func describeIntake(rec *caserecord.Record) map[string]any {
	var in Input
	_, _ = rec.Get(KeyInput, &in)
	return map[string]any{
		"documents": len(in.Documents),
		"images":    len(in.ImageFindings),
		"urgency":   in.Urgency,
	}
}

func describeReasoning(rec *caserecord.Record) map[string]any {
	var model string
	_, _ = rec.Get(KeyReasoningModel, &model)
	return map[string]any{
		"model":             model,
		"evidence_mismatch": rec.RiskFacts.EvidenceMismatch,
	}
}

func describeDecision(rec *caserecord.Record) map[string]any {
	if rec.Decision == nil {
		return nil
	}
	return map[string]any{
		"decision": string(rec.Decision.Outcome),
		"reason":   rec.Decision.Reason,
	}
}

func buildPrompt(in *Input) string {
	var b strings.Builder
	b.WriteString("You are a healthcare appeals analyst.\n\nMedical Evidence:\n")
	for _, name := range sortedKeys(in.Documents) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", name, in.Documents[name])
	}
	b.WriteString("Image Findings:\n")
	names := make([]string, 0, len(in.ImageFindings))
	for name := range in.ImageFindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		findings, _ := json.Marshal(in.ImageFindings[name])
		fmt.Fprintf(&b, "[%s] %s\n", name, findings)
	}
	fmt.Fprintf(&b, "\nUrgency: %s\n\n", in.Urgency)
	b.WriteString("Tasks:\n")
	b.WriteString("1. Determine medical necessity.\n")
	b.WriteString("2. Check for inconsistencies across documents (patient identity, diagnosis mismatch).\n\n")
	b.WriteString("Explicitly state if evidence is inconsistent.\n")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
