package review

import (
	"context"
	"time"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Status is the lifecycle state of a review record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusReviewed Status = "REVIEWED"
)

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove         Decision = "APPROVE"
	DecisionDeny            Decision = "DENY"
	DecisionRequestMoreInfo Decision = "REQUEST_MORE_INFO"
)

// Valid reports whether d is an accepted reviewer decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionDeny, DecisionRequestMoreInfo:
		return true
	default:
		return false
	}
}

// Payload is the snapshot of facts that triggered the escalation.
type Payload struct {
	SystemDecision   caserecord.Outcome `json:"system_decision"`
	DecisionReason   string             `json:"decision_reason"`
	EvidenceMismatch bool               `json:"evidence_mismatch"`
	ReasoningSummary string             `json:"reasoning_summary"`
	RuleVerdicts     map[string]string  `json:"rule_verdicts,omitempty"`
	ReliabilityIndex float64            `json:"reliability_index"`
}

// Review is the reviewer's completed decision.
type Review struct {
	Reviewer   string    `json:"reviewer"`
	Decision   Decision  `json:"decision"`
	Comments   string    `json:"comments"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Record is the persisted review queue entry for a case.
type Record struct {
	CaseID      string    `json:"case_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      Status    `json:"status"`
	Payload     Payload   `json:"payload"`
	Review      *Review   `json:"review"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Payload.RuleVerdicts != nil {
		c.Payload.RuleVerdicts = make(map[string]string, len(r.Payload.RuleVerdicts))
		for k, v := range r.Payload.RuleVerdicts {
			c.Payload.RuleVerdicts[k] = v
		}
	}
	if r.Review != nil {
		rv := *r.Review
		c.Review = &rv
	}
	return &c
}

// Submission is returned to the reviewer after a successful Submit.
type Submission struct {
	CaseID        string   `json:"case_id"`
	FinalDecision Decision `json:"final_decision"`
	Reviewer      string   `json:"reviewer"`
	Status        string   `json:"status"`
}

// Store persists review records.
type Store interface {
	// Create stores rec if no record exists for rec.CaseID. It reports
	// whether the record was created; an existing record is left untouched.
	Create(ctx context.Context, rec *Record) (bool, error)

	// Get returns the record for a case or ErrReviewNotFound.
	Get(ctx context.Context, caseID string) (*Record, error)

	// Complete atomically moves a PENDING record to REVIEWED with the given
	// review. It fails with ErrReviewNotFound or ErrAlreadyReviewed.
	Complete(ctx context.Context, caseID string, review *Review) error

	// List returns records with the given status, oldest first. An empty
	// status returns every record.
	List(ctx context.Context, status Status) ([]*Record, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
