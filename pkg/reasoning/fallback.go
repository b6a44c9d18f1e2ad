package reasoning

import (
	"context"
	"log/slog"
)

// Fallback asks Primary first and Secondary when Primary fails.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	logger    *slog.Logger
}

// NewFallback creates a fallback provider. Secondary may be nil.
func NewFallback(primary, secondary Provider) *Fallback {
	return &Fallback{
		Primary:   primary,
		Secondary: secondary,
		logger:    slog.Default().With("component", "reasoning.fallback"),
	}
}

// Name implements Provider.
func (f *Fallback) Name() string {
	if f.Primary == nil {
		return "fallback"
	}
	return f.Primary.Name()
}

// Produce implements Provider.
func (f *Fallback) Produce(ctx context.Context, req *Request) (*Response, error) {
	if f.Primary == nil {
		if f.Secondary == nil {
			return nil, ErrNoProvider
		}
		return f.Secondary.Produce(ctx, req)
	}

	resp, err := f.Primary.Produce(ctx, req)
	if err == nil {
		return resp, nil
	}
	if f.Secondary == nil || ctx.Err() != nil {
		return nil, err
	}

	f.logger.Warn("primary reasoning provider failed, using fallback",
		"primary", f.Primary.Name(),
		"fallback", f.Secondary.Name(),
		"error", err,
	)

	resp, secondaryErr := f.Secondary.Produce(ctx, req)
	if secondaryErr != nil {
		return nil, &FallbackExhaustedError{Primary: err, Secondary: secondaryErr}
	}
	return resp, nil
}
