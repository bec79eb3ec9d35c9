package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/metrics"
)

// Config holds the chat-completion client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	Logger      *zap.Logger
}

// Client is a Generator backed by an OpenAI-compatible chat completion API.
// Transient failures are retried with exponential backoff up to MaxRetries;
// permanent failures (auth, malformed request) return immediately.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	maxRetries  int
	logger      *zap.Logger
}

// NewClient creates a chat client. BaseURL may point at any
// OpenAI-compatible endpoint; empty means the default.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		maxRetries:  retries,
		logger:      cfg.Logger,
	}
}

// Generate sends the prompt as a single user message and returns the first
// choice. The call is bounded by the configured timeout per attempt and
// aborts as soon as ctx is cancelled.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryDelay(attempt-1, 500*time.Millisecond)
			c.logger.Debug("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		resp, err := c.client.CreateChatCompletion(attemptCtx, req)
		cancel()
		metrics.ObserveGeneration(c.model, time.Since(start), err)

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !IsRetryable(err) {
				return "", fmt.Errorf("generation failed: %w", err)
			}
			continue
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("generation returned no choices")
		}
		if resp.Usage.TotalTokens > 0 {
			metrics.AddGenerationTokens(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
