package policy

import "mercator-hq/arbiter/pkg/caserecord"

// Verdict is a rule outcome for one entity.
type Verdict string

const (
	VerdictEnhancedDueDiligence  Verdict = "ENHANCED_DUE_DILIGENCE_REQUIRED"
	VerdictTransactionMonitoring Verdict = "TRANSACTION_MONITORING_REQUIRED"
	VerdictNoViolation           Verdict = "NO_VIOLATION"

	// Single-entity verdicts mirror the governance outcomes.
	VerdictApprove  Verdict = Verdict(caserecord.OutcomeApprove)
	VerdictDeny     Verdict = Verdict(caserecord.OutcomeDeny)
	VerdictEscalate Verdict = Verdict(caserecord.OutcomeEscalate)
)

// Score thresholds. Both are inclusive lower bounds.
const (
	EnhancedDueDiligenceThreshold  = 8.0
	TransactionMonitoringThreshold = 5.0
)

// CaseEntity is the rule_verdicts key used by single-entity variants.
const CaseEntity = "case"

// Severity orders verdicts; larger is more severe.
func (v Verdict) Severity() int {
	switch v {
	case VerdictNoViolation, VerdictApprove:
		return 0
	case VerdictTransactionMonitoring, VerdictDeny:
		return 1
	case VerdictEnhancedDueDiligence, VerdictEscalate:
		return 2
	default:
		return -1
	}
}

// IsViolation reports whether the verdict counts as a policy violation for
// confidence scoring.
func (v Verdict) IsViolation() bool {
	switch v {
	case VerdictEnhancedDueDiligence, VerdictTransactionMonitoring, VerdictEscalate:
		return true
	default:
		return false
	}
}

// VerdictFor maps a risk score to its financial-crime verdict.
func VerdictFor(score float64) Verdict {
	switch {
	case score >= EnhancedDueDiligenceThreshold:
		return VerdictEnhancedDueDiligence
	case score >= TransactionMonitoringThreshold:
		return VerdictTransactionMonitoring
	default:
		return VerdictNoViolation
	}
}
