// Package audit records the append-only timeline of a case.
//
// Every completed stage, policy evaluation, escalation, human review and
// governance cycle becomes an Event. Events are written through a Writer,
// which suppresses duplicates on the (case_id, dedup key) pair so that a case
// can be re-run after a human review without repeating milestones that
// already completed. Nothing in this package updates or deletes an event.
//
// # Storage Backends
//
// The Store interface is implemented in the storage subpackage:
//
//   - MemoryStore: in-process, for tests and single-shot CLI runs
//   - SQLiteStore: durable single-node log
//   - PostgresStore: shared log for multiple workers
//
// Each backend enforces the duplicate-suppression key itself (a unique
// constraint for SQL backends), so concurrent writers for the same case
// cannot both record a milestone.
//
// # Ordering
//
// Query returns events in the order they were appended, which is the order
// in which the corresponding stages completed.
package audit
