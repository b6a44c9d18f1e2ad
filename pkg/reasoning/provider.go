package reasoning

import "context"

// Request is a single reasoning prompt.
type Request struct {
	// System is an optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string
}

// Response is a provider's answer.
type Response struct {
	// Text is the free-text reasoning.
	Text string

	// Model identifies the model that produced Text.
	Model string

	// EvidenceMismatch is set when the provider reports evidence
	// consistency as a structured field. Nil means the provider said
	// nothing and callers fall back to phrase detection.
	EvidenceMismatch *bool
}

// Provider produces reasoning text.
type Provider interface {
	Name() string
	Produce(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Provider interface.
type Func struct {
	ProviderName string
	Fn           func(ctx context.Context, req *Request) (*Response, error)
}

// Name implements Provider.
func (f Func) Name() string { return f.ProviderName }

// Produce implements Provider.
func (f Func) Produce(ctx context.Context, req *Request) (*Response, error) {
	return f.Fn(ctx, req)
}

// Static returns the same response for every request.
type Static struct {
	Text     string
	Model    string
	Mismatch *bool
}

// Name implements Provider.
func (s *Static) Name() string {
	if s.Model == "" {
		return "static"
	}
	return s.Model
}

// Produce implements Provider.
func (s *Static) Produce(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderUnavailableError{Provider: s.Name(), Cause: err}
	}
	resp := &Response{Text: s.Text, Model: s.Name()}
	if s.Mismatch != nil {
		m := *s.Mismatch
		resp.EvidenceMismatch = &m
	}
	return resp, nil
}
