// Package confidence derives the reliability index of a governance run from
// signal completeness and rule outcomes.
//
// The index starts at 1.00 and is reduced by additive penalties:
//
//	-0.10  no behavioral-anomaly signal anywhere in the case
//	-0.10  no network-connection signal anywhere in the case
//	-0.10  per high-risk entity (score > 7) without an anomaly signal
//	-0.10  per high-risk entity (score > 7) without a network signal
//	-0.05  per policy violation, at most -0.20 in total
//
// The result is rounded to two decimals and clamped to [0.40, 1.00].
// Arithmetic is carried out in whole hundredths so the rounding is exact.
package confidence

import (
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/policy"
)

// Bounds of the reliability index.
const (
	Floor   = 0.40
	Ceiling = 1.00
)

// HighRiskScore is the exclusive lower bound of a high-risk entity score.
const HighRiskScore = 7.0

// Penalties in hundredths.
const (
	missingSignalPenalty = 10
	highRiskGapPenalty   = 10
	violationPenalty     = 5
	maxViolationsPenalty = 20
	floorHundredths      = 40
	ceilingHundredths    = 100
)

// Breakdown itemises the penalties applied by Score.
type Breakdown struct {
	NoAnomalySignal  bool    `json:"no_anomaly_signal"`
	NoNetworkSignal  bool    `json:"no_network_signal"`
	HighRiskGaps     int     `json:"high_risk_gaps"`
	Violations       int     `json:"violations"`
	ViolationPenalty float64 `json:"violation_penalty"`
	Raw              float64 `json:"raw"`
	Value            float64 `json:"value"`
}

// Score returns the reliability index for the given facts and verdicts.
func Score(facts caserecord.RiskFacts, verdicts map[string]string) (float64, error) {
	b, err := Explain(facts, verdicts)
	if err != nil {
		return 0, err
	}
	return b.Value, nil
}

// Explain computes the reliability index together with the penalties that
// produced it. It fails on malformed facts or unknown verdicts rather than
// guessing a value.
func Explain(facts caserecord.RiskFacts, verdicts map[string]string) (Breakdown, error) {
	if err := policy.ValidateFacts(facts); err != nil {
		return Breakdown{}, err
	}

	var b Breakdown
	c := ceilingHundredths

	if !anyPositive(facts.Anomalies) {
		b.NoAnomalySignal = true
		c -= missingSignalPenalty
	}
	if !anyPositive(facts.Network) {
		b.NoNetworkSignal = true
		c -= missingSignalPenalty
	}

	for entity, score := range facts.Scores {
		if score <= HighRiskScore {
			continue
		}
		if facts.Anomalies[entity] == 0 {
			b.HighRiskGaps++
		}
		if facts.Network[entity] == 0 {
			b.HighRiskGaps++
		}
	}
	c -= b.HighRiskGaps * highRiskGapPenalty

	for entity, v := range verdicts {
		verdict := policy.Verdict(v)
		if verdict.Severity() < 0 {
			return Breakdown{}, policy.NewMalformedFactsError("rule_verdicts["+entity+"]", "unknown verdict "+v)
		}
		if verdict.IsViolation() {
			b.Violations++
		}
	}
	vp := min(b.Violations*violationPenalty, maxViolationsPenalty)
	b.ViolationPenalty = float64(vp) / 100
	c -= vp

	b.Raw = float64(c) / 100
	b.Value = float64(max(min(c, ceilingHundredths), floorHundredths)) / 100
	return b, nil
}

func anyPositive(counts map[string]int) bool {
	for _, n := range counts {
		if n > 0 {
			return true
		}
	}
	return false
}
