package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/governance"
)

// Pipeline evaluates case definitions end to end: the variant's stages,
// then the governance gate.
type Pipeline struct {
	runners map[caserecord.Variant]*Runner
	gate    *governance.Gate
	logger  *slog.Logger
}

// New creates a pipeline from per-variant runners and a gate.
func New(gate *governance.Gate, runners map[caserecord.Variant]*Runner) *Pipeline {
	return &Pipeline{
		runners: runners,
		gate:    gate,
		logger:  slog.Default().With("component", "pipeline"),
	}
}

// Evaluate runs a case definition through its variant's stages and the
// gate. A pending escalation is returned as a Result, not an error.
func (p *Pipeline) Evaluate(ctx context.Context, def *caserecord.Definition) (*governance.Result, error) {
	runner, ok := p.runners[def.Variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, def.Variant)
	}

	rec, err := runner.Run(ctx, caserecord.New(def))
	if err != nil {
		return nil, err
	}
	return p.gate.Evaluate(ctx, rec)
}

// BatchResult is the outcome of one case in a batch.
type BatchResult struct {
	CaseID string
	Result *governance.Result
	Err    error
}

// RunBatch evaluates defs concurrently with at most workers cases in
// flight. Results are returned in input order.
func (p *Pipeline) RunBatch(ctx context.Context, defs []*caserecord.Definition, workers int) []BatchResult {
	return p.RunBatchFunc(ctx, defs, workers, nil)
}

// RunBatchFunc is RunBatch with a callback invoked as each case finishes.
// The callback may run concurrently from several workers.
func (p *Pipeline) RunBatchFunc(ctx context.Context, defs []*caserecord.Definition, workers int, done func(BatchResult)) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]BatchResult, len(defs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, def := range defs {
		g.Go(func() error {
			res, err := p.Evaluate(ctx, def)
			results[i] = BatchResult{CaseID: def.CaseID, Result: res, Err: err}
			if err != nil {
				p.logger.Warn("case evaluation failed", "case_id", def.CaseID, "error", err)
			}
			if done != nil {
				done(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
