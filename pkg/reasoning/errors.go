package reasoning

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned by Fallback when no provider is configured.
var ErrNoProvider = errors.New("no reasoning provider configured")

// ProviderUnavailableError indicates that a provider could not produce a
// response.
type ProviderUnavailableError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("reasoning provider %s unavailable: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ProviderUnavailableError) Unwrap() error {
	return e.Cause
}

// FallbackExhaustedError is returned when both the primary and the secondary
// provider failed.
type FallbackExhaustedError struct {
	Primary   error
	Secondary error
}

// Error implements the error interface.
func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("all reasoning providers failed: primary: %v; secondary: %v", e.Primary, e.Secondary)
}

// Unwrap returns both causes.
func (e *FallbackExhaustedError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

// IsUnavailable reports whether err came from an unavailable provider.
func IsUnavailable(err error) bool {
	var pu *ProviderUnavailableError
	var fe *FallbackExhaustedError
	return errors.As(err, &pu) || errors.As(err, &fe) || errors.Is(err, ErrNoProvider)
}
