package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// OpenAIEmbedder produces embeddings via an OpenAI-compatible API. Vectors are
// L2-normalized on return so the vector index's inner product is cosine
// similarity.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint.
func NewOpenAIEmbedder(cfg *Config) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}
}

// Embed returns the normalized embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, retrying transient API failures
// with exponential backoff.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := llm.RetryDelay(attempt-1, 500*time.Millisecond)
			e.logger.Debug("retrying embedding",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.CreateEmbeddings(attemptCtx, req)
		cancel()

		if err != nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !llm.IsRetryable(err) {
				return nil, fmt.Errorf("embedding request failed: %w", err)
			}
			continue
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()

		out := make([][]float32, len(texts))
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			copy(vec, d.Embedding)
			utils.NormalizeL2(vec)
			out[d.Index] = vec
		}
		return out, nil
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
