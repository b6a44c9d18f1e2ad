// Package governance implements the terminal decision gate of a case
// pipeline.
//
// The gate runs the policy rules and the confidence scorer over the final
// case record and moves the case out of PENDING_EVALUATION:
//
//	PENDING_EVALUATION ──APPROVE──────────────▶ APPROVED            (0.85)
//	                   ──DENY─────────────────▶ DENIED              (0.85)
//	                   ──ESCALATE, reviewed───▶ ESCALATED_COMPLETED (0.95)
//	                   ──ESCALATE, no review──▶ ESCALATED_PENDING_REVIEW
//
// An evidence mismatch or an ESCALATE rule verdict always forces the
// escalation branch, whatever decision the upstream stages reached.
//
// A pending escalation is not an error: Evaluate returns a Result whose
// Pending method reports true, after enqueueing the case for human review.
// Calling Evaluate again for the same case is safe. Enqueueing and audit
// writes are idempotent, and once a reviewer has submitted a decision the
// next call adopts it.
//
// Malformed facts abort the evaluation with an error; the gate never
// fabricates a decision from incomplete data.
package governance
