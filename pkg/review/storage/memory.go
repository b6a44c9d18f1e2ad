package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/arbiter/pkg/review"
)

// MemoryStore is an in-memory review.Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*review.Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*review.Record)}
}

// Create implements review.Store.
func (m *MemoryStore) Create(ctx context.Context, rec *review.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, review.NewStorageError("memory", "create", errClosed)
	}
	if _, ok := m.records[rec.CaseID]; ok {
		return false, nil
	}
	m.records[rec.CaseID] = rec.Clone()
	return true, nil
}

// Get implements review.Store.
func (m *MemoryStore) Get(ctx context.Context, caseID string) (*review.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, review.NewStorageError("memory", "get", errClosed)
	}
	rec, ok := m.records[caseID]
	if !ok {
		return nil, review.ErrReviewNotFound
	}
	return rec.Clone(), nil
}

// Complete implements review.Store.
func (m *MemoryStore) Complete(ctx context.Context, caseID string, rv *review.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return review.NewStorageError("memory", "complete", errClosed)
	}
	rec, ok := m.records[caseID]
	if !ok {
		return review.ErrReviewNotFound
	}
	if rec.Status != review.StatusPending {
		return review.ErrAlreadyReviewed
	}
	copied := *rv
	rec.Status = review.StatusReviewed
	rec.Review = &copied
	return nil
}

// List implements review.Store.
func (m *MemoryStore) List(ctx context.Context, status review.Status) ([]*review.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, review.NewStorageError("memory", "list", errClosed)
	}
	out := make([]*review.Record, 0, len(m.records))
	for _, rec := range m.records {
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

// Ping implements review.Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return review.NewStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close implements review.Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// sortRecords orders records by submission time, then case id.
func sortRecords(recs []*review.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SubmittedAt.Equal(recs[j].SubmittedAt) {
			return recs[i].CaseID < recs[j].CaseID
		}
		return recs[i].SubmittedAt.Before(recs[j].SubmittedAt)
	})
}
