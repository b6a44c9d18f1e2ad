package storage

import (
	"context"
	"slices"
	"sync"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// MemoryStore implements audit.Store using in-memory slices.
// This implementation is intended for testing and one-shot runs.
type MemoryStore struct {
	events []*caserecord.Event
	keys   map[string]map[string]struct{}
	closed bool
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]map[string]struct{}),
	}
}

// Append implements audit.Store.
func (s *MemoryStore) Append(ctx context.Context, event *caserecord.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, audit.NewStorageError("memory", "append", audit.ErrClosed)
	}

	byCase, ok := s.keys[event.CaseID]
	if !ok {
		byCase = make(map[string]struct{})
		s.keys[event.CaseID] = byCase
	}
	key := event.Key()
	if _, dup := byCase[key]; dup {
		return false, nil
	}
	byCase[key] = struct{}{}

	// Store a copy to avoid mutation
	e := event.Clone()
	s.events = append(s.events, &e)
	return true, nil
}

// Has implements audit.Store.
func (s *MemoryStore) Has(ctx context.Context, caseID, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, audit.NewStorageError("memory", "has", audit.ErrClosed)
	}
	_, ok := s.keys[caseID][key]
	return ok, nil
}

// Query implements audit.Store.
func (s *MemoryStore) Query(ctx context.Context, query *audit.Query) ([]*caserecord.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "query", audit.ErrClosed)
	}
	if query == nil {
		query = &audit.Query{}
	}

	results := []*caserecord.Event{}
	for _, e := range s.events {
		if !matches(e, query) {
			continue
		}
		c := e.Clone()
		results = append(results, &c)
	}
	return paginate(results, query.Offset, query.Limit), nil
}

// Ping implements audit.Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return audit.ErrClosed
	}
	return nil
}

// Close implements audit.Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func matches(e *caserecord.Event, q *audit.Query) bool {
	if q.CaseID != "" && e.CaseID != q.CaseID {
		return false
	}
	if len(q.Kinds) > 0 && !slices.Contains(q.Kinds, e.Kind) {
		return false
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	return true
}

func paginate(events []*caserecord.Event, offset, limit int) []*caserecord.Event {
	if offset >= len(events) {
		return []*caserecord.Event{}
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}
