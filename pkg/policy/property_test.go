package policy

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mercator-hq/arbiter/pkg/caserecord"
)

// TestVerdictMonotonic verifies verdict severity never decreases as the
// score increases.
func TestVerdictMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("severity is non-decreasing in score", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			return VerdictFor(lo).Severity() <= VerdictFor(hi).Severity()
		},
		gen.Float64Range(0, 20),
		gen.Float64Range(0, 20),
	))

	properties.TestingRun(t)
}

// TestEvaluateRiskDeterministic verifies identical facts yield identical
// verdicts.
func TestEvaluateRiskDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("EvaluateRisk is deterministic", prop.ForAll(
		func(scores []float64) bool {
			if len(scores) == 0 {
				return true
			}
			facts := caserecord.RiskFacts{Scores: make(map[string]float64, len(scores))}
			for i, s := range scores {
				facts.Scores[string(rune('A'+i%26))+string(rune('a'+i/26%26))] = s
			}
			first, err1 := EvaluateRisk(facts)
			second, err2 := EvaluateRisk(facts)
			if err1 != nil || err2 != nil {
				return false
			}
			for k, v := range first {
				if second[k] != v {
					return false
				}
			}
			return len(first) == len(second)
		},
		gen.SliceOf(gen.Float64Range(0, 15)),
	))

	properties.TestingRun(t)
}
