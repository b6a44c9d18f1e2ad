package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore is a filesystem-backed Store.
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a store rooted at root, creating it if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, "runs"), 0o755); err != nil {
		return nil, NewStorageError("filesystem", "open", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) caseDir(caseID string) string {
	return filepath.Join(s.root, "runs", caseID)
}

// Put implements Store. Writes go to a temp file and are renamed into place.
func (s *FileStore) Put(ctx context.Context, caseID, name string, data []byte) (*Ref, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.caseDir(caseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewStorageError("filesystem", "put", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, NewStorageError("filesystem", "put", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, NewStorageError("filesystem", "put", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return newRef(caseID, name, "file://"+filepath.ToSlash(abs), data), nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, caseID, name string) ([]byte, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.caseDir(caseID), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("filesystem", "get", err)
	}
	return data, nil
}

// List implements Store. Refs are rebuilt from file contents.
func (s *FileStore) List(ctx context.Context, caseID string) ([]Ref, error) {
	if err := validateKey(caseID, "list"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.caseDir(caseID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Ref{}, nil
	}
	if err != nil {
		return nil, NewStorageError("filesystem", "list", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".tmp" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewStorageError("filesystem", "list", err)
		}
		ref := newRef(caseID, entry.Name(), "file://"+filepath.ToSlash(path), data)
		if info, err := entry.Info(); err == nil {
			ref.CreatedAt = info.ModTime().UTC()
		}
		refs = append(refs, *ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Ping implements Store.
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return NewStorageError("filesystem", "ping", err)
	}
	return nil
}
