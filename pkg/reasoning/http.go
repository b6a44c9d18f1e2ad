package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures an OpenAI-compatible chat completions provider.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://api.groq.com/openai/v1".
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// Model is the model name sent with every request.
	Model string

	Temperature float64
	MaxTokens   int

	// Timeout bounds a single HTTP attempt. Default: 60 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries on network errors and 5xx.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// RequestsPerSecond limits outgoing requests; zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Default: 1
	Burst int
}

// HTTPProvider calls a chat completions endpoint.
type HTTPProvider struct {
	config  HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewHTTPProvider creates a chat completions provider.
func NewHTTPProvider(config HTTPConfig) *HTTPProvider {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &HTTPProvider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, config.Burst),
		logger:  slog.Default().With("component", "reasoning.http", "model", config.Model),
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string {
	return p.config.Model
}

// Produce implements Provider.
func (p *HTTPProvider) Produce(ctx context.Context, req *Request) (*Response, error) {
	if p.config.BaseURL == "" {
		return nil, p.unavailable(fmt.Errorf("base url not configured"))
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return nil, p.unavailable(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := strings.TrimSuffix(p.config.BaseURL, "/") + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.config.RetryBackoff << (attempt - 1)
			p.logger.Debug("retrying reasoning request", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, p.unavailable(ctx.Err())
			case <-time.After(backoff):
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, p.unavailable(err)
		}

		resp, retry, err := p.do(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		p.logger.Warn("reasoning request failed, will retry", "attempt", attempt+1, "error", err)
	}
	return nil, p.unavailable(lastErr)
}

// do performs one attempt. The bool reports whether the failure is
// retryable.
func (p *HTTPProvider) do(ctx context.Context, url string, body []byte) (*Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("response has no choices")
	}

	model := parsed.Model
	if model == "" {
		model = p.config.Model
	}
	return &Response{Text: parsed.Choices[0].Message.Content, Model: model}, false, nil
}

func (p *HTTPProvider) unavailable(cause error) error {
	return &ProviderUnavailableError{Provider: p.config.Model, Cause: cause}
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
