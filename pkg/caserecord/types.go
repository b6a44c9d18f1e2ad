package caserecord

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the version of the Record layout written by this package.
const SchemaVersion = "1.0.0"

// Variant identifies the domain a case belongs to.
type Variant string

const (
	// VariantAppeals is a healthcare appeal decided on medical necessity.
	VariantAppeals Variant = "appeals"

	// VariantFinancialCrime is a multi-entity financial-crime review.
	VariantFinancialCrime Variant = "fincrime"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantAppeals || v == VariantFinancialCrime
}

// Outcome is a governance outcome.
type Outcome string

const (
	OutcomeApprove  Outcome = "APPROVE"
	OutcomeDeny     Outcome = "DENY"
	OutcomeEscalate Outcome = "ESCALATE"
)

// Valid reports whether o is one of APPROVE, DENY or ESCALATE.
func (o Outcome) Valid() bool {
	return o == OutcomeApprove || o == OutcomeDeny || o == OutcomeEscalate
}

// Deterministic reports whether o can be decided without a human.
func (o Outcome) Deterministic() bool {
	return o == OutcomeApprove || o == OutcomeDeny
}

// ReviewStatus tracks whether human adjudication was involved in a result.
type ReviewStatus string

const (
	ReviewNotRequired ReviewStatus = "NOT_REQUIRED"
	ReviewPending     ReviewStatus = "PENDING"
	ReviewCompleted   ReviewStatus = "COMPLETED"
)

// Decision is the system decision produced by the decisioning stage.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// RiskFacts holds the signals the policy rules and the confidence scorer
// read. Maps are keyed by entity identifier.
type RiskFacts struct {
	// Scores is the composite risk score per entity.
	Scores map[string]float64 `json:"scores,omitempty"`

	// Anomalies is the number of behavioral-anomaly observations per entity.
	Anomalies map[string]int `json:"anomalies,omitempty"`

	// Network is the number of fraud-network connections per entity.
	Network map[string]int `json:"network,omitempty"`

	// EvidenceMismatch is set when the supporting evidence is inconsistent
	// (patient identity or document mismatch). It always forces escalation.
	EvidenceMismatch bool `json:"evidence_mismatch"`

	// Assessment is the reasoning-derived outcome for single-entity cases.
	Assessment Outcome `json:"assessment,omitempty"`
}

// Clone returns a deep copy of the facts.
func (f RiskFacts) Clone() RiskFacts {
	f.Scores = maps.Clone(f.Scores)
	f.Anomalies = maps.Clone(f.Anomalies)
	f.Network = maps.Clone(f.Network)
	return f
}

// Record is the case state passed from stage to stage.
type Record struct {
	SchemaVersion string  `json:"schema_version"`
	CaseID        string  `json:"case_id"`
	Variant       Variant `json:"variant"`

	// Input is the domain-specific part of the case definition.
	Input json.RawMessage `json:"input,omitempty"`

	RiskFacts    RiskFacts         `json:"risk_facts"`
	RuleVerdicts map[string]string `json:"rule_verdicts,omitempty"`

	// Reasoning and Narratives are opaque provider text.
	Reasoning  string            `json:"reasoning,omitempty"`
	Narratives map[string]string `json:"narratives,omitempty"`

	Decision     *Decision    `json:"decision,omitempty"`
	Confidence   *float64     `json:"confidence,omitempty"`
	ReviewStatus ReviewStatus `json:"review_status,omitempty"`

	Timeline []Event `json:"timeline,omitempty"`

	// Extensions holds variant-specific fields as raw JSON.
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// New creates the initial Record for a case definition.
func New(def *Definition) *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		CaseID:        def.CaseID,
		Variant:       def.Variant,
		Input:         slices.Clone(def.Input),
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Input = slices.Clone(r.Input)
	c.RiskFacts = r.RiskFacts.Clone()
	c.RuleVerdicts = maps.Clone(r.RuleVerdicts)
	c.Narratives = maps.Clone(r.Narratives)
	if r.Decision != nil {
		d := *r.Decision
		c.Decision = &d
	}
	if r.Confidence != nil {
		v := *r.Confidence
		c.Confidence = &v
	}
	if r.Timeline != nil {
		c.Timeline = make([]Event, len(r.Timeline))
		for i, e := range r.Timeline {
			c.Timeline[i] = e.Clone()
		}
	}
	if r.Extensions != nil {
		c.Extensions = make(map[string]json.RawMessage, len(r.Extensions))
		for k, v := range r.Extensions {
			c.Extensions[k] = slices.Clone(v)
		}
	}
	return &c
}

// Set stores v under key in the extension map, overwriting any earlier value.
func (r *Record) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode extension %q: %w", key, err)
	}
	if r.Extensions == nil {
		r.Extensions = make(map[string]json.RawMessage)
	}
	r.Extensions[key] = data
	return nil
}

// Get decodes the extension stored under key into out. It reports false when
// the key is absent.
func (r *Record) Get(key string, out any) (bool, error) {
	data, ok := r.Extensions[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("decode extension %q: %w", key, err)
	}
	return true, nil
}

// SetNarrative records provider text for an entity.
func (r *Record) SetNarrative(entity, text string) {
	if r.Narratives == nil {
		r.Narratives = make(map[string]string)
	}
	r.Narratives[entity] = text
}

// AppendEvent adds an event to the end of the timeline.
func (r *Record) AppendEvent(e Event) {
	r.Timeline = append(r.Timeline, e)
}

// HasEvent reports whether the timeline already holds an event with the
// given dedup key.
func (r *Record) HasEvent(dedupKey string) bool {
	return slices.ContainsFunc(r.Timeline, func(e Event) bool {
		return e.Key() == dedupKey
	})
}

// EventKind names a timeline milestone.
type EventKind string

const (
	EventIntakeCompleted         EventKind = "INTAKE_COMPLETED"
	EventSignalFusionCompleted   EventKind = "SIGNAL_FUSION_COMPLETED"
	EventRiskScoringCompleted    EventKind = "RISK_SCORING_COMPLETED"
	EventClassificationCompleted EventKind = "RISK_CLASSIFICATION_COMPLETED"
	EventDecisioningCompleted    EventKind = "DECISIONING_COMPLETED"
	EventReasoningCompleted      EventKind = "REASONING_COMPLETED"
	EventInvestigationCompleted  EventKind = "INVESTIGATION_COMPLETED"
	EventExplainabilityCompleted EventKind = "EXPLAINABILITY_COMPLETED"
	EventNarrativeGenerated      EventKind = "NARRATIVE_GENERATED"
	EventCaseFileConstructed     EventKind = "CASE_FILE_CONSTRUCTED"
	EventPolicyEvaluation        EventKind = "POLICY_EVALUATION"
	EventEscalationQueued        EventKind = "ESCALATION_QUEUED"
	EventHumanReview             EventKind = "HUMAN_REVIEW"
	EventGovernanceCycle         EventKind = "GOVERNANCE_CYCLE"
)

// Event is one timeline entry. Events are immutable once recorded.
type Event struct {
	ID        string         `json:"id"`
	CaseID    string         `json:"case_id"`
	Kind      EventKind      `json:"event"`
	DedupKey  string         `json:"dedup_key,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"details,omitempty"`
}

// NewEvent creates an event stamped with the current UTC time.
func NewEvent(caseID string, kind EventKind, detail map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Kind:      kind,
		DedupKey:  string(kind),
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}
}

// WithDedupKey returns a copy of e with a custom de-duplication key.
func (e Event) WithDedupKey(key string) Event {
	e.DedupKey = key
	return e
}

// Key returns the de-duplication key, falling back to the event kind.
func (e Event) Key() string {
	if e.DedupKey != "" {
		return e.DedupKey
	}
	return string(e.Kind)
}

// Clone returns a copy of e with its own detail map.
func (e Event) Clone() Event {
	e.Detail = maps.Clone(e.Detail)
	return e
}
