package pipeline

import (
	"context"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Stage is one step of a pipeline.
type Stage interface {
	// Name identifies the stage in errors, logs and checkpoint names.
	Name() string

	// Milestone is the timeline event recorded when the stage completes.
	Milestone() caserecord.EventKind

	// Run returns the updated record. The input is a private copy.
	Run(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error)
}

// Describer is implemented by stages that attach detail to their
// milestone event.
type Describer interface {
	Describe(rec *caserecord.Record) map[string]any
}

// StageFunc is the signature of a stage body.
type StageFunc func(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error)

// DescribeFunc builds milestone event detail from a stage's output.
type DescribeFunc func(rec *caserecord.Record) map[string]any

type funcStage struct {
	name      string
	milestone caserecord.EventKind
	fn        StageFunc
	describe  DescribeFunc
}

// NewStage builds a Stage from a function.
func NewStage(name string, milestone caserecord.EventKind, fn StageFunc) Stage {
	return &funcStage{name: name, milestone: milestone, fn: fn}
}

// NewDescribedStage builds a Stage whose milestone event carries the
// detail returned by describe.
func NewDescribedStage(name string, milestone caserecord.EventKind, fn StageFunc, describe DescribeFunc) Stage {
	return &funcStage{name: name, milestone: milestone, fn: fn, describe: describe}
}

func (s *funcStage) Name() string                    { return s.name }
func (s *funcStage) Milestone() caserecord.EventKind { return s.milestone }

func (s *funcStage) Run(ctx context.Context, rec *caserecord.Record) (*caserecord.Record, error) {
	return s.fn(ctx, rec)
}

func (s *funcStage) Describe(rec *caserecord.Record) map[string]any {
	if s.describe == nil {
		return nil
	}
	return s.describe(rec)
}
