package caserecord

import (
	"errors"
	"fmt"
)

// ErrIncompatibleSchema is returned when a persisted record was written by an
// incompatible schema version.
var ErrIncompatibleSchema = errors.New("incompatible record schema version")

// DefinitionError is returned when a case definition cannot be loaded or
// fails schema validation.
type DefinitionError struct {
	// Source is the file path or "<inline>" for in-memory documents.
	Source string

	// Cause is the underlying decode or validation error.
	Cause error
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid case definition %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DefinitionError) Unwrap() error {
	return e.Cause
}

// NewDefinitionError creates a new DefinitionError.
func NewDefinitionError(source string, cause error) *DefinitionError {
	return &DefinitionError{Source: source, Cause: cause}
}
