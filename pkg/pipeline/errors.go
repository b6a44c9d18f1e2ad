package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrCaseIDChanged is the cause of a StageFailure when a stage returns
	// a record for a different case.
	ErrCaseIDChanged = errors.New("stage changed the case id")

	// ErrNilRecord is the cause of a StageFailure when a stage returns no
	// record and no error.
	ErrNilRecord = errors.New("stage returned no record")

	// ErrFieldRemoved is the cause of a StageFailure when a stage drops a
	// field its input record carried. Fields may be overwritten, not removed.
	ErrFieldRemoved = errors.New("stage removed a record field")

	// ErrInvalidRecord is returned when the initial record has no case id.
	ErrInvalidRecord = errors.New("record has no case id")

	// ErrUnknownVariant is returned when no runner is registered for a
	// case's variant.
	ErrUnknownVariant = errors.New("no pipeline registered for variant")
)

// StageFailure reports that a stage could not produce output.
type StageFailure struct {
	CaseID string
	Stage  string
	Cause  error
}

// Error implements the error interface.
func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed for case %s: %v", e.Stage, e.CaseID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StageFailure) Unwrap() error {
	return e.Cause
}

// NewStageFailure creates a new StageFailure.
func NewStageFailure(caseID, stage string, cause error) *StageFailure {
	return &StageFailure{CaseID: caseID, Stage: stage, Cause: cause}
}

// IsStageFailure reports whether err is a StageFailure.
func IsStageFailure(err error) bool {
	var sf *StageFailure
	return errors.As(err, &sf)
}
