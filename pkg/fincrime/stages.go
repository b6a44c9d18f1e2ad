package fincrime

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
	"mercator-hq/arbiter/pkg/reasoning"
)

// Config holds the collaborators of the financial-crime stages.
type Config struct {
	// Provider writes investigation findings and executive explanations.
	// Required.
	Provider reasoning.Provider

	// Artifacts receives the case file artifacts when set.
	Artifacts artifacts.Store
}

// Stages returns the financial-crime stages in execution order.
func Stages(cfg Config) ([]pipeline.Stage, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("fincrime: reasoning provider is required")
	}
	s := &stages{cfg: cfg, logger: slog.Default().With("component", "fincrime")}

	return []pipeline.Stage{
		pipeline.NewDescribedStage(StageIntake, caserecord.EventIntakeCompleted, s.intake, describeIntake),
		pipeline.NewDescribedStage(StageSignalFusion, caserecord.EventSignalFusionCompleted, s.fuseSignals, nil),
		pipeline.NewDescribedStage(StageRiskScoring, caserecord.EventRiskScoringCompleted, s.scoreRisk, describeScores),
		pipeline.NewDescribedStage(StageClassification, caserecord.EventClassificationCompleted, s.classify, describeKey(KeyClassifications, "risk_classifications")),
		pipeline.NewDescribedStage(StageDecision, caserecord.EventDecisioningCompleted, s.decide, describeKey(KeyDecisions, "portfolio_decisions")),
		pipeline.NewDescribedStage(StageInvestigation, caserecord.EventInvestigationCompleted, s.investigate, nil),
		pipeline.NewDescribedStage(StageExplainability, caserecord.EventExplainabilityCompleted, s.explain, nil),
		pipeline.NewDescribedStage(StageNarratives, caserecord.EventNarrativeGenerated, s.narrate, describeNarratives),
		pipeline.NewDescribedStage(StageCaseFile, caserecord.EventCaseFileConstructed, s.buildCaseFile, describeCaseFile),
	}, nil
}

type stages struct {
	cfg    Config
	logger *slog.Logger
}

func (s *stages) intake(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var in Input
	if err := json.Unmarshal(rec.Input, &in); err != nil {
		return nil, fmt.Errorf("decode fincrime input: %w", err)
	}
	if len(in.Entities) == 0 {
		return nil, fmt.Errorf("case has no entities")
	}
	seen := make(map[string]bool, len(in.Entities))
	for _, e := range in.Entities {
		if e.ID == "" {
			return nil, fmt.Errorf("entity without id")
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate entity %q", e.ID)
		}
		seen[e.ID] = true
	}
	if err := rec.Set(KeyEntities, in.Entities); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) fuseSignals(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	entities, err := loadEntities(rec)
	if err != nil {
		return nil, err
	}

	signals := make(map[string]Signals, len(entities))
	anomalies := make(map[string]int)
	network := make(map[string]int)
	for _, e := range entities {
		sig := Signals{
			NetworkRisk: len(e.FraudConnections),
			KYCRisk:     e.KYCRisk,
			Anomalies:   e.Anomalies,
		}
		if sig.NetworkRisk > 0 || e.Anomalies > 0 {
			sig.TransactionAnomaly = 1
		}
		signals[e.ID] = sig
		if e.Anomalies > 0 {
			anomalies[e.ID] = e.Anomalies
		}
		if sig.NetworkRisk > 0 {
			network[e.ID] = sig.NetworkRisk
		}
	}

	rec.RiskFacts.Anomalies = anomalies
	rec.RiskFacts.Network = network
	if err := rec.Set(KeySignals, signals); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) scoreRisk(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	entities, err := loadEntities(rec)
	if err != nil {
		return nil, err
	}
	var signals map[string]Signals
	if ok, err := rec.Get(KeySignals, &signals); err != nil || !ok {
		return nil, fmt.Errorf("behavioral signals missing")
	}

	scores := make(map[string]float64, len(entities))
	for _, e := range entities {
		if e.RiskScore != nil {
			scores[e.ID] = *e.RiskScore
			continue
		}
		scores[e.ID] = Score(signals[e.ID])
	}
	rec.RiskFacts.Scores = scores
	return rec, nil
}

func (s *stages) classify(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	if len(rec.RiskFacts.Scores) == 0 {
		return nil, fmt.Errorf("risk scores missing")
	}
	tiers := make(map[string]Tier, len(rec.RiskFacts.Scores))
	for id, score := range rec.RiskFacts.Scores {
		tiers[id] = Classify(score)
	}
	if err := rec.Set(KeyClassifications, tiers); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) decide(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var tiers map[string]Tier
	if ok, err := rec.Get(KeyClassifications, &tiers); err != nil || !ok {
		return nil, fmt.Errorf("risk classifications missing")
	}

	actions := make(map[string]Action, len(tiers))
	var escalated []string
	for id, tier := range tiers {
		actions[id] = Decide(tier)
		if actions[id] == ActionEscalate {
			escalated = append(escalated, id)
		}
	}
	sort.Strings(escalated)

	if len(escalated) > 0 {
		rec.Decision = &caserecord.Decision{
			Outcome: caserecord.OutcomeEscalate,
			Reason:  fmt.Sprintf("%s: %s", ReasonInvestigation, strings.Join(escalated, ", ")),
		}
	} else {
		rec.Decision = &caserecord.Decision{Outcome: caserecord.OutcomeApprove, Reason: ReasonNoEscalation}
	}

	if err := rec.Set(KeyDecisions, actions); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) investigate(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	entities, err := loadEntities(rec)
	if err != nil {
		return nil, err
	}

	findings := make(map[string]string, len(entities))
	for _, e := range entities {
		prompt := fmt.Sprintf(`Customer ID: %s
Risk Score: %g
Fraud Network Connections: %d

Provide a financial crime investigation assessment.
Focus on behavioral risk, network risk, and potential typologies.
Write like a banking investigator.`, e.ID, rec.RiskFacts.Scores[e.ID], len(e.FraudConnections))

		resp, err := s.cfg.Provider.Produce(ctx, &reasoning.Request{Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("investigation of %s: %w", e.ID, err)
		}
		findings[e.ID] = resp.Text
	}

	if err := rec.Set(KeyInvestigations, findings); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "investigation findings collected", "entities", len(findings))
	return rec, nil
}

func (s *stages) explain(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var tiers map[string]Tier
	var actions map[string]Action
	if ok, err := rec.Get(KeyClassifications, &tiers); err != nil || !ok {
		return nil, fmt.Errorf("risk classifications missing")
	}
	if ok, err := rec.Get(KeyDecisions, &actions); err != nil || !ok {
		return nil, fmt.Errorf("portfolio decisions missing")
	}

	ids := sortedIDs(tiers)
	explanations := make(map[string]string, len(ids))
	var summary strings.Builder
	for _, id := range ids {
		prompt := fmt.Sprintf(`Customer ID: %s
Classification: %s
Risk Score: %g
Decision: %s

Generate an executive-level risk justification.
Explain why this classification and decision occurred.
Use professional banking risk language.`, id, tiers[id], rec.RiskFacts.Scores[id], actions[id])

		resp, err := s.cfg.Provider.Produce(ctx, &reasoning.Request{
			System: "You are an enterprise banking risk analyst.",
			Prompt: prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("explanation of %s: %w", id, err)
		}
		explanations[id] = resp.Text
		fmt.Fprintf(&summary, "%s: %s\n", id, resp.Text)
	}

	rec.Reasoning = strings.TrimSpace(summary.String())
	if err := rec.Set(KeyExplanations, explanations); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *stages) narrate(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var tiers map[string]Tier
	var actions map[string]Action
	if _, err := rec.Get(KeyClassifications, &tiers); err != nil {
		return nil, err
	}
	if _, err := rec.Get(KeyDecisions, &actions); err != nil {
		return nil, err
	}

	for _, id := range sortedScoreIDs(rec.RiskFacts.Scores) {
		tier, ok := tiers[id]
		if !ok {
			tier = TierLow
		}
		action, ok := actions[id]
		if !ok {
			action = ActionAllow
		}
		text, err := renderNarrative(narrativeData{
			Entity:      id,
			Tier:        tier,
			Score:       rec.RiskFacts.Scores[id],
			Anomalies:   rec.RiskFacts.Anomalies[id],
			Connections: rec.RiskFacts.Network[id],
			Action:      action,
		})
		if err != nil {
			return nil, fmt.Errorf("render narrative for %s: %w", id, err)
		}
		rec.SetNarrative(id, text)
	}
	return rec, nil
}

func (s *stages) buildCaseFile(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	var tiers map[string]Tier
	var actions map[string]Action
	var findings map[string]string
	if _, err := rec.Get(KeyClassifications, &tiers); err != nil {
		return nil, err
	}
	if _, err := rec.Get(KeyDecisions, &actions); err != nil {
		return nil, err
	}
	if _, err := rec.Get(KeyInvestigations, &findings); err != nil {
		return nil, err
	}

	sar := make(map[string]SARRecord)
	for _, id := range sortedScoreIDs(rec.RiskFacts.Scores) {
		if actions[id] != ActionEscalate {
			continue
		}
		sar[id] = SARRecord{
			CustomerID:       id,
			RiskScore:        rec.RiskFacts.Scores[id],
			Decision:         actions[id],
			Narrative:        rec.Narratives[id],
			SARFlag:          true,
			RegulatoryReason: SARRegulatoryReason,
		}
	}
	if err := rec.Set(KeySAR, sar); err != nil {
		return nil, err
	}

	if s.cfg.Artifacts != nil {
		summary := CaseSummary{
			CaseID:              rec.CaseID,
			RiskScores:          rec.RiskFacts.Scores,
			RiskClassifications: tiers,
			PortfolioDecisions:  actions,
			SARCount:            len(sar),
		}
		if findings == nil {
			findings = map[string]string{}
		}
		outputs := []struct {
			name string
			v    any
		}{
			{SARArtifact, sar},
			{CaseSummaryArtifact, summary},
			{InvestigationArtifact, findings},
		}
		for _, o := range outputs {
			if _, err := artifacts.PutJSON(ctx, s.cfg.Artifacts, rec.CaseID, o.name, o.v); err != nil {
				return nil, err
			}
		}
	}

	if len(sar) > 0 {
		s.logger.InfoContext(ctx, "suspicious activity reports prepared", "count", len(sar))
	}
	return rec, nil
}

func loadEntities(rec *caserecord.Record) ([]Entity, error) {
	var entities []Entity
	ok, err := rec.Get(KeyEntities, &entities)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("intake output missing")
	}
	return entities, nil
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedScoreIDs(scores map[string]float64) []string {
	return sortedIDs(scores)
}

func describeIntake(rec *caserecord.Record) map[string]any {
	entities, _ := loadEntities(rec)
	return map[string]any{"entities": len(entities)}
}

func describeScores(rec *caserecord.Record) map[string]any {
	return map[string]any{"risk_scores": rec.RiskFacts.Scores}
}

func describeKey(key, field string) pipeline.DescribeFunc {
	return func(rec *caserecord.Record) map[string]any {
		var v map[string]string
		if ok, err := rec.Get(key, &v); err != nil || !ok {
			return nil
		}
		return map[string]any{field: v}
	}
}

func describeNarratives(rec *caserecord.Record) map[string]any {
	return map[string]any{"narratives": len(rec.Narratives)}
}

func describeCaseFile(rec *caserecord.Record) map[string]any {
	var sar map[string]SARRecord
	_, _ = rec.Get(KeySAR, &sar)
	return map[string]any{"sar_count": len(sar)}
}
