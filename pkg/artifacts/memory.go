package artifacts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryEntry struct {
	ref  Ref
	data []byte
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]map[string]memoryEntry)}
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, caseID, name string, data []byte) (*Ref, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}
	copied := append([]byte(nil), data...)
	ref := newRef(caseID, name, fmt.Sprintf("memory://%s/%s", caseID, name), copied)

	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.cases[caseID]
	if !ok {
		entries = make(map[string]memoryEntry)
		m.cases[caseID] = entries
	}
	entries[name] = memoryEntry{ref: *ref, data: copied}
	return ref, nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, caseID, name string) ([]byte, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cases[caseID][name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, caseID string) ([]Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make([]Ref, 0, len(m.cases[caseID]))
	for _, entry := range m.cases[caseID] {
		refs = append(refs, entry.ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
