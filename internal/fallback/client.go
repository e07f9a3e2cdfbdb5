// Package fallback asks a remote chat-completions service to answer messages
// that are not greenhouse commands.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

var (
	// ErrQuotaExceeded is returned when the service answers 402 Payment Required.
	ErrQuotaExceeded = errors.New("fallback quota exceeded")
	// ErrRequestFailed wraps any other failed call.
	ErrRequestFailed = errors.New("fallback request failed")
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultModel     = "openai/gpt-4o"
	defaultMaxTokens = 1000
	defaultTimeout   = 30 * time.Second
)

type Options struct {
	BaseURL       string // OpenAI-compatible API root; /chat/completions is appended
	APIKey        string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	RatePerMinute int // <= 0 disables limiting
}

// Client is safe for concurrent use.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}

	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		limiter:   limiter,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content, trimmed. A response without choices yields "".
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps the SDK's error types onto the package sentinels.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case status != 0:
		return fmt.Errorf("%w: HTTP %d: %w", ErrRequestFailed, status, err)
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}
