package review

import (
	"errors"
	"fmt"
)

var (
	// ErrReviewNotFound is returned when no review record exists for a case.
	ErrReviewNotFound = errors.New("review record not found")

	// ErrAlreadyReviewed is returned when a review is submitted for a case
	// that has already been reviewed.
	ErrAlreadyReviewed = errors.New("case already reviewed")

	// ErrInvalidDecision is returned for decisions other than APPROVE, DENY
	// and REQUEST_MORE_INFO.
	ErrInvalidDecision = errors.New("invalid review decision")

	// ErrInvalidReviewer is returned when the reviewer is empty.
	ErrInvalidReviewer = errors.New("reviewer is required")

	// ErrInvalidCaseID is returned when the case id is empty.
	ErrInvalidCaseID = errors.New("case id is required")
)

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("memory", "sqlite", "redis")
	Operation string // Operation that failed ("create", "complete", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("review storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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
