package repository

import (
	"context"
	"sync"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/google/uuid"
)

// ChunkMemory keeps chunks in process memory. It backs CHUNK_STORE=memory
// and the service tests.
type ChunkMemory struct {
	mu       sync.RWMutex
	dim      int
	bySource map[string][]models.Chunk
}

// NewChunkMemory returns an empty store. dim of zero disables the fixed
// dimension check.
func NewChunkMemory(dim int) *ChunkMemory {
	return &ChunkMemory{dim: dim, bySource: make(map[string][]models.Chunk)}
}

// ReplaceChunks swaps every chunk of sourceID for the given ones.
func (m *ChunkMemory) ReplaceChunks(_ context.Context, sourceID string, chunks []models.ChunkInput) error {
	if err := checkDimensions(chunks, m.dim); err != nil {
		return err
	}
	rows := make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = models.Chunk{
			ID:       uuid.NewString(),
			Text:     c.Text,
			SourceID: sourceID,
			Vector:   append([]float32(nil), c.Vector...),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(rows) == 0 {
		delete(m.bySource, sourceID)
		return nil
	}
	m.bySource[sourceID] = rows
	return nil
}

// FindSimilar returns up to k chunk texts for sourceID, nearest first.
func (m *ChunkMemory) FindSimilar(_ context.Context, query []float32, sourceID string, k int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return texts(RankByDistance(query, m.bySource[sourceID], k)), nil
}

// ListBySource returns the stored chunks of sourceID in insertion order.
func (m *ChunkMemory) ListBySource(_ context.Context, sourceID string) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Chunk(nil), m.bySource[sourceID]...), nil
}
