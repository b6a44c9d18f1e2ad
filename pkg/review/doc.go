// Package review implements the human-in-the-loop review queue.
//
// A review record is created the first time the governance gate escalates a
// case, and is completed exactly once when a reviewer submits a decision:
//
//	PENDING --Submit--> REVIEWED
//
// Enqueue is idempotent: a second escalation of the same case never
// overwrites the payload captured by the first. Submit on a REVIEWED record
// fails with ErrAlreadyReviewed and leaves the stored review untouched.
// Records are never deleted; they are retained as audit evidence.
//
// # Concurrency
//
// Enqueue and Submit for the same case are serialized by a per-case lock in
// the Queue. Storage backends additionally implement completion as an
// atomic compare-and-set, so separate processes sharing a backend cannot
// both complete a review.
//
// # Stale Reviews
//
// A pending review has no built-in expiry. Monitor runs on a cron schedule
// and reports reviews that have been pending longer than a threshold. It
// only reports; it never changes or removes a record.
package review
