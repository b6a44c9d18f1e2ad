package fincrime

// Extension keys written by the stages.
const (
	KeyEntities        = "entities"
	KeySignals         = "behavioral_signals"
	KeyClassifications = "risk_classifications"
	KeyDecisions       = "portfolio_decisions"
	KeyInvestigations  = "investigation_findings"
	KeyExplanations    = "executive_explanations"
	KeySAR             = "sar_artifacts"
)

// Artifact names written by the case file stage.
const (
	SARArtifact           = "sar_artifacts.json"
	CaseSummaryArtifact   = "case_summary.json"
	InvestigationArtifact = "investigation_notes.json"
)

// Stage names.
const (
	StageIntake         = "intake"
	StageSignalFusion   = "signal_fusion"
	StageRiskScoring    = "risk_scoring"
	StageClassification = "classification"
	StageDecision       = "decision"
	StageInvestigation  = "investigation"
	StageExplainability = "explainability"
	StageNarratives     = "narratives"
	StageCaseFile       = "case_file"
)

// Entity is one customer or account under review.
type Entity struct {
	ID               string   `json:"id"`
	KYCRisk          float64  `json:"kyc_risk,omitempty"`
	Anomalies        int      `json:"anomalies,omitempty"`
	RiskScore        *float64 `json:"risk_score,omitempty"`
	FraudConnections []string `json:"fraud_connections,omitempty"`
}

// Input is the financial-crime part of a case definition.
type Input struct {
	Entities []Entity `json:"entities"`
}

// Signals are the fused behavioral signals of an entity.
type Signals struct {
	NetworkRisk        int     `json:"network_risk"`
	TransactionAnomaly int     `json:"transaction_anomaly"`
	KYCRisk            float64 `json:"kyc_risk"`
	Anomalies          int     `json:"anomalies"`
}

// Tier is a risk classification.
type Tier string

const (
	TierHigh   Tier = "HIGH_RISK"
	TierMedium Tier = "MEDIUM_RISK"
	TierLow    Tier = "LOW_RISK"
)

// Action is a per-entity portfolio decision.
type Action string

const (
	ActionEscalate Action = "ESCALATE_FOR_INVESTIGATION"
	ActionMonitor  Action = "ENHANCED_MONITORING"
	ActionAllow    Action = "ALLOW"
)

// Tier thresholds.
const (
	HighRiskThreshold   = 7.0
	MediumRiskThreshold = 3.0
)

// Decision reasons.
const (
	ReasonInvestigation = "High-risk entities require investigation"
	ReasonNoEscalation  = "No entity met the investigation threshold"
	SARRegulatoryReason = "Elevated behavioral and network risk indicators"
)

// SARRecord is a suspicious activity report entry for an escalated entity.
type SARRecord struct {
	CustomerID       string  `json:"customer_id"`
	RiskScore        float64 `json:"risk_score"`
	Decision         Action  `json:"decision"`
	Narrative        string  `json:"narrative"`
	SARFlag          bool    `json:"sar_flag"`
	RegulatoryReason string  `json:"regulatory_reason"`
}

// CaseSummary is the case file summary artifact.
type CaseSummary struct {
	CaseID              string             `json:"case_id"`
	RiskScores          map[string]float64 `json:"risk_scores"`
	RiskClassifications map[string]Tier    `json:"risk_classifications"`
	PortfolioDecisions  map[string]Action  `json:"portfolio_decisions"`
	SARCount            int                `json:"sar_count"`
}

// Score computes the composite risk score from fused signals.
func Score(s Signals) float64 {
	return float64(s.NetworkRisk*3+s.TransactionAnomaly*2) + s.KYCRisk
}

// Classify maps a score to a tier.
func Classify(score float64) Tier {
	switch {
	case score >= HighRiskThreshold:
		return TierHigh
	case score >= MediumRiskThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Decide maps a tier to a portfolio action.
func Decide(t Tier) Action {
	switch t {
	case TierHigh:
		return ActionEscalate
	case TierMedium:
		return ActionMonitor
	default:
		return ActionAllow
	}
}
