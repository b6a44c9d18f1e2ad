package governance

import (
	"time"

	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/caserecord"
)

// State is a governance state.
type State string

const (
	StatePendingEvaluation      State = "PENDING_EVALUATION"
	StateApproved               State = "APPROVED"
	StateDenied                 State = "DENIED"
	StateEscalatedPendingReview State = "ESCALATED_PENDING_REVIEW"
	StateEscalatedCompleted     State = "ESCALATED_COMPLETED"
)

// Terminal reports whether no further governance run can change the state.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateDenied || s == StateEscalatedCompleted
}

// Fixed confidence values of the decided states.
const (
	DeterministicConfidence = 0.85
	ReviewedConfidence      = 0.95
)

// Artifact names written by the gate.
const (
	GovernedRecordArtifact = "governed_record.json"
	FinalDecisionArtifact  = "final_governed_decision.json"
)

// HumanReviewReasonPrefix prefixes the decision reason adopted from a
// reviewer.
const HumanReviewReasonPrefix = "Human Review Decision: "

// Result is the governed outcome of a case.
type Result struct {
	CaseID              string                  `json:"case_id"`
	FinalDecision       string                  `json:"final_decision"`
	DecisionReason      string                  `json:"decision_reason"`
	Explanation         string                  `json:"explanation,omitempty"`
	Confidence          float64                 `json:"confidence"`
	ReliabilityIndex    float64                 `json:"reliability_index"`
	HumanReviewRequired bool                    `json:"human_review_required"`
	ReviewStatus        caserecord.ReviewStatus `json:"review_status"`
	State               State                   `json:"state"`
	RuleVerdicts        map[string]string       `json:"rule_verdicts"`
	Reviewer            string                  `json:"reviewer,omitempty"`
	GovernedAt          time.Time               `json:"governed_at"`
	Artifacts           []artifacts.Ref         `json:"artifacts,omitempty"`
	Timeline            []caserecord.Event      `json:"timeline,omitempty"`
}

// Pending reports whether the case is waiting for a human decision.
func (r *Result) Pending() bool {
	return r.State == StateEscalatedPendingReview
}
