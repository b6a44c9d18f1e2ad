package audit

import (
	"context"
	"time"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Store persists audit events.
type Store interface {
	// Append persists an event unless an event with the same case id and
	// dedup key already exists. It reports whether the event was written.
	Append(ctx context.Context, event *caserecord.Event) (bool, error)

	// Has reports whether an event with the dedup key exists for the case.
	Has(ctx context.Context, caseID, key string) (bool, error)

	// Query returns events matching the filters in append order.
	// Returns an empty slice if no events match.
	Query(ctx context.Context, query *Query) ([]*caserecord.Event, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Query filters audit events. Zero values match everything.
type Query struct {
	// CaseID restricts results to one case.
	CaseID string

	// Kinds restricts results to the given event kinds.
	Kinds []caserecord.EventKind

	// StartTime and EndTime bound the event timestamp (inclusive).
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of results. Zero means no limit.
	Limit int

	// Offset skips the first results.
	Offset int
}
