package policy

import (
	"errors"
	"fmt"
)

// ErrUnknownVariant is returned when no rule set exists for a case variant.
var ErrUnknownVariant = errors.New("no rules for case variant")

// MalformedFactsError reports risk facts that cannot be evaluated. It is
// never recovered from: a verdict computed over bad facts is worse than none.
type MalformedFactsError struct {
	// Field is the offending field path, e.g. "risk_facts.scores[C1]".
	Field string

	// Reason describes what is wrong with the field.
	Reason string
}

// Error implements the error interface.
func (e *MalformedFactsError) Error() string {
	return fmt.Sprintf("malformed risk facts: %s: %s", e.Field, e.Reason)
}

// NewMalformedFactsError creates a new MalformedFactsError.
func NewMalformedFactsError(field, reason string) *MalformedFactsError {
	return &MalformedFactsError{Field: field, Reason: reason}
}

// IsMalformedFacts reports whether err is or wraps a MalformedFactsError.
func IsMalformedFacts(err error) bool {
	var target *MalformedFactsError
	return errors.As(err, &target)
}
