package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// ChunkStore persists chunk vectors per source and answers nearest-neighbour
// queries within one source.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, sourceID string, chunks []models.ChunkInput) error
	FindSimilar(ctx context.Context, query []float32, sourceID string, k int) ([]string, error)
}

// Defaults for retrieval.
const (
	DefaultTopK         = 3
	DefaultContextWords = 1500
)

// ContextAssembler retrieves the chunks closest to a query and renders them
// into a bounded prompt.
type ContextAssembler struct {
	embedder *EmbeddingClient
	store    ChunkStore
	topK     int
	maxWords int
}

// NewContextAssembler applies defaults for non-positive topK and maxWords.
func NewContextAssembler(embedder *EmbeddingClient, store ChunkStore, topK, maxWords int) *ContextAssembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxWords <= 0 {
		maxWords = DefaultContextWords
	}
	return &ContextAssembler{embedder: embedder, store: store, topK: topK, maxWords: maxWords}
}

// Retrieve embeds query and returns the top-k chunk texts of sourceID, most
// similar first.
func (a *ContextAssembler) Retrieve(ctx context.Context, sourceID, query string) ([]string, error) {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	chunks, err := a.store.FindSimilar(ctx, vec, sourceID, a.topK)
	if err != nil {
		return nil, fmt.Errorf("find similar chunks for %s: %w", sourceID, err)
	}
	return chunks, nil
}

// Prompt renders chunks under a numbered "Context:" header followed by tail.
func (a *ContextAssembler) Prompt(chunks []string, tail string) string {
	return BuildPrompt(chunks, tail, a.maxWords)
}

// BuildPrompt numbers the chunks in rank order and appends tail. The chunks
// together contribute at most maxWords words; the chunk that crosses the
// budget is cut and later ones are dropped.
func BuildPrompt(chunks []string, tail string, maxWords int) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")

	used, n := 0, 0
	for _, c := range chunks {
		words := strings.Fields(c)
		if len(words) == 0 {
			continue
		}
		if maxWords > 0 {
			left := maxWords - used
			if left <= 0 {
				break
			}
			if len(words) > left {
				words = words[:left]
			}
		}
		used += len(words)
		n++
		fmt.Fprintf(&sb, "%d. %s\n\n", n, strings.Join(words, " "))
	}
	if n == 0 {
		sb.WriteString("(no stored project context)\n\n")
	}

	sb.WriteString(strings.TrimSpace(tail))
	return sb.String()
}
