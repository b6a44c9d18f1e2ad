package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent is returned for events without a case id or kind.
	ErrInvalidEvent = errors.New("invalid audit event")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("audit store closed")
)

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("memory", "sqlite", "postgres")
	Operation string // Operation that failed ("append", "query", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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

// ExportError represents a failure while exporting a timeline.
type ExportError struct {
	Format string // Export format ("json", "jsonl", "csv")
	Count  int    // Events written before the failure
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("audit export failed [format=%s, written=%d]: %v", e.Format, e.Count, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, count int, cause error) *ExportError {
	return &ExportError{Format: format, Count: count, Cause: cause}
}
