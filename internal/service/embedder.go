package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// Embedder converts text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingClient is the one entry point for embeddings. Ingest and query
// both go through it so stored chunks and queries share a vector space.
// It bounds each call with a timeout, checks the dimension and maps any
// provider failure to models.ErrEmbeddingUnavailable.
type EmbeddingClient struct {
	embedder Embedder
	dim      int
	timeout  time.Duration
}

// NewEmbeddingClient wraps embedder. dim of zero skips the dimension check and
// a zero timeout leaves the deadline to ctx.
func NewEmbeddingClient(embedder Embedder, dim int, timeout time.Duration) *EmbeddingClient {
	return &EmbeddingClient{embedder: embedder, dim: dim, timeout: timeout}
}

// Dim is the configured vector length.
func (c *EmbeddingClient) Dim() int { return c.dim }

// Embed returns the vector of text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("[Embedding] provider call failed: %v", err)
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", models.ErrEmbeddingUnavailable)
	}
	if c.dim > 0 && len(vec) != c.dim {
		return nil, fmt.Errorf("%w: %w: got %d values, want %d",
			models.ErrEmbeddingUnavailable, models.ErrDimensionMismatch, len(vec), c.dim)
	}
	return vec, nil
}
