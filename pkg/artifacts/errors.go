package artifacts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidName is returned for empty names or names containing path
	// separators.
	ErrInvalidName = errors.New("invalid artifact name")
)

// StorageError represents an error from an artifact backend.
type StorageError struct {
	Backend   string // "memory", "filesystem", "s3"
	Operation string // "put", "get", "list", "ping"
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("artifact storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
