package policy

import (
	"fmt"
	"math"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Rules evaluates the risk facts of one case variant.
type Rules interface {
	// Evaluate returns the verdict per entity. It fails with a
	// *MalformedFactsError when a required fact is missing or invalid.
	Evaluate(facts caserecord.RiskFacts) (map[string]string, error)
}

// RulesFunc adapts a function to the Rules interface.
type RulesFunc func(facts caserecord.RiskFacts) (map[string]string, error)

// Evaluate calls f(facts).
func (f RulesFunc) Evaluate(facts caserecord.RiskFacts) (map[string]string, error) {
	return f(facts)
}

// ForVariant returns the rule set for a case variant.
func ForVariant(v caserecord.Variant) (Rules, error) {
	switch v {
	case caserecord.VariantFinancialCrime:
		return RulesFunc(EvaluateRisk), nil
	case caserecord.VariantAppeals:
		return RulesFunc(EvaluateAppeal), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
}

// EvaluateRisk applies the score thresholds to every scored entity.
func EvaluateRisk(facts caserecord.RiskFacts) (map[string]string, error) {
	if len(facts.Scores) == 0 {
		return nil, NewMalformedFactsError("risk_facts.scores", "required field is missing or empty")
	}
	if err := ValidateFacts(facts); err != nil {
		return nil, err
	}

	verdicts := make(map[string]string, len(facts.Scores))
	for entity, score := range facts.Scores {
		verdicts[entity] = string(VerdictFor(score))
	}
	return verdicts, nil
}

// EvaluateAppeal derives the single appeal verdict. An evidence mismatch
// yields ESCALATE whatever the assessment says.
func EvaluateAppeal(facts caserecord.RiskFacts) (map[string]string, error) {
	if err := ValidateFacts(facts); err != nil {
		return nil, err
	}
	if facts.EvidenceMismatch {
		return map[string]string{CaseEntity: string(VerdictEscalate)}, nil
	}
	if facts.Assessment == "" {
		return nil, NewMalformedFactsError("risk_facts.assessment", "required field is missing")
	}
	return map[string]string{CaseEntity: string(facts.Assessment)}, nil
}

// ValidateFacts checks the structural invariants shared by all variants.
// Optional signals may be absent; present ones must be well formed.
func ValidateFacts(facts caserecord.RiskFacts) error {
	for entity, score := range facts.Scores {
		if entity == "" {
			return NewMalformedFactsError("risk_facts.scores", "empty entity identifier")
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return NewMalformedFactsError(fmt.Sprintf("risk_facts.scores[%s]", entity), "score is not a finite number")
		}
		if score < 0 {
			return NewMalformedFactsError(fmt.Sprintf("risk_facts.scores[%s]", entity), "score is negative")
		}
	}
	if err := validateCounts("anomalies", facts.Anomalies, facts.Scores); err != nil {
		return err
	}
	if err := validateCounts("network", facts.Network, facts.Scores); err != nil {
		return err
	}
	if facts.Assessment != "" && !facts.Assessment.Valid() {
		return NewMalformedFactsError("risk_facts.assessment", fmt.Sprintf("unknown outcome %q", facts.Assessment))
	}
	return nil
}

func validateCounts(name string, counts map[string]int, scores map[string]float64) error {
	for entity, n := range counts {
		field := fmt.Sprintf("risk_facts.%s[%s]", name, entity)
		if n < 0 {
			return NewMalformedFactsError(field, "count is negative")
		}
		if len(scores) > 0 {
			if _, ok := scores[entity]; !ok {
				return NewMalformedFactsError(field, "signal for an entity without a risk score")
			}
		}
	}
	return nil
}
