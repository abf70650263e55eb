// Package extraction calls chat-completion providers to pull structured JSON
// out of free-form text, falling through an ordered provider list on
// retryable failures.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/observability/logger"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNoProviders = errors.New("no_extraction_providers")
	ErrExhausted   = errors.New("extraction_chain_exhausted")
)

// Client walks the configured provider chain. It holds no conversation
// state; provider ordering is its only policy.
type Client struct {
	providers []config.ProviderConfig
	http      *http.Client
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type ClientParam struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func NewClient(p ClientParam) *Client {
	providers := make([]config.ProviderConfig, 0, len(p.Config.LLM.Providers))
	for _, provider := range p.Config.LLM.Providers {
		if provider.APIKey != "" {
			providers = append(providers, provider)
		}
	}
	return &Client{
		providers: providers,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       p.Log.Named("extraction.client"),
		metrics:   p.Metrics,
	}
}

// Extract issues one call per provider, in order, until one succeeds. A
// retryable failure (rate limit, server error, connection failure) advances
// the chain; any other failure, or an exhausted chain, is propagated.
func (c *Client) Extract(ctx context.Context, system, user string) (json.RawMessage, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for i, provider := range c.providers {
		raw, err := c.call(ctx, provider, system, user)
		if err == nil {
			return raw, nil
		}

		var retryable *retryableError
		if errors.As(err, &retryable) && i < len(c.providers)-1 {
			c.log.Warn("provider failed, trying next",
				zap.String("provider", provider.Name),
				zap.Error(err),
			)
			c.metrics.ExtractionFallback.WithLabelValues(provider.Name).Inc()
			lastErr = err
			continue
		}
		if errors.As(err, &retryable) {
			lastErr = err
			break
		}
		return nil, fmt.Errorf("provider %s: %w", provider.Name, err)
	}

	return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

type retryableError struct {
	reason string
	cause  error
}

func (e *retryableError) Error() string {
	if e.cause != nil {
		return e.reason + ": " + e.cause.Error()
	}
	return e.reason
}

func (e *retryableError) Unwrap() error { return e.cause }

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) call(ctx context.Context, provider config.ProviderConfig, system, user string) (json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model: provider.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &retryableError{reason: "connection failure", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retryableError{reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("empty completion")
	}

	content := stripCodeFences(parsed.Choices[0].Message.Content)
	raw := json.RawMessage(content)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("completion is not valid JSON")
	}
	logger.FromContext(ctx).Debug("extraction ok", zap.String("provider", provider.Name))
	return raw, nil
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
