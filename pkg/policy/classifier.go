package policy

import (
	"slices"
	"strings"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Reasons attached to appeal decisions.
const (
	ReasonEvidenceMismatch   = "Evidence inconsistency detected (patient identity / document mismatch)"
	ReasonNotNecessary       = "Medical necessity criteria not met"
	ReasonNecessary          = "Medical necessity criteria satisfied"
	ReasonAmbiguousReasoning = "Ambiguous reasoning outcome"
)

// Classification is a classifier's reading of reasoning text.
type Classification struct {
	Outcome caserecord.Outcome
	Reason  string
}

// Classifier turns provider reasoning into an outcome and detects evidence
// inconsistencies the provider did not flag structurally.
type Classifier interface {
	Classify(reasoning string) Classification
	DetectMismatch(reasoning string) bool
}

// Legacy marker phrases. Matching is case-insensitive substring search.
var (
	DefaultMismatchPhrases = []string{
		"does not match",
		"inconsistent",
		"different patient",
		"missing information",
		"cannot determine",
	}
	DefaultDenyPhrases    = []string{"not medically necessary"}
	DefaultApprovePhrases = []string{"medically necessary"}
)

// PhraseClassifier classifies reasoning text by marker phrases. Deny phrases
// are checked before approve phrases because "not medically necessary"
// contains "medically necessary".
type PhraseClassifier struct {
	MismatchPhrases []string
	DenyPhrases     []string
	ApprovePhrases  []string
}

// NewPhraseClassifier returns a classifier with the default phrase lists.
func NewPhraseClassifier() *PhraseClassifier {
	return &PhraseClassifier{
		MismatchPhrases: slices.Clone(DefaultMismatchPhrases),
		DenyPhrases:     slices.Clone(DefaultDenyPhrases),
		ApprovePhrases:  slices.Clone(DefaultApprovePhrases),
	}
}

// Classify implements Classifier.
func (c *PhraseClassifier) Classify(reasoning string) Classification {
	text := strings.ToLower(reasoning)
	switch {
	case containsAny(text, c.DenyPhrases):
		return Classification{Outcome: caserecord.OutcomeDeny, Reason: ReasonNotNecessary}
	case containsAny(text, c.ApprovePhrases):
		return Classification{Outcome: caserecord.OutcomeApprove, Reason: ReasonNecessary}
	default:
		return Classification{Outcome: caserecord.OutcomeEscalate, Reason: ReasonAmbiguousReasoning}
	}
}

// DetectMismatch implements Classifier.
func (c *PhraseClassifier) DetectMismatch(reasoning string) bool {
	return containsAny(strings.ToLower(reasoning), c.MismatchPhrases)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// DecideAppeal produces the appeal decision. The mismatch override is
// applied before the classifier sees the text.
func DecideAppeal(evidenceMismatch bool, reasoning string, c Classifier) caserecord.Decision {
	if evidenceMismatch {
		return caserecord.Decision{Outcome: caserecord.OutcomeEscalate, Reason: ReasonEvidenceMismatch}
	}
	cl := c.Classify(reasoning)
	return caserecord.Decision{Outcome: cl.Outcome, Reason: cl.Reason}
}
