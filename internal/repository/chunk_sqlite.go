package repository

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"gorm.io/gorm"
)

// chunkRow is the relational layout of a chunk: (id, chunk_text, source, vector).
// source is a plain string key with no foreign key to projects.
type chunkRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChunkText string `gorm:"column:chunk_text;type:text;not null"`
	Source    string `gorm:"column:source;index;not null"`
	Vector    []byte `gorm:"column:vector;not null"`
}

func (chunkRow) TableName() string { return "chunk_embedding" }

// ChunkSQLite stores chunks in a SQL table through gorm and ranks them in
// process, which is fine for per-project corpora of a few hundred rows.
type ChunkSQLite struct {
	db  *gorm.DB
	dim int
}

// NewChunkSQLite migrates the chunk table and returns the store.
func NewChunkSQLite(db *gorm.DB, dim int) (*ChunkSQLite, error) {
	if err := db.AutoMigrate(&chunkRow{}); err != nil {
		return nil, fmt.Errorf("migrate chunk_embedding: %w", err)
	}
	return &ChunkSQLite{db: db, dim: dim}, nil
}

// ReplaceChunks deletes every row of sourceID and inserts the new chunks in
// one transaction.
func (s *ChunkSQLite) ReplaceChunks(ctx context.Context, sourceID string, chunks []models.ChunkInput) error {
	if err := checkDimensions(chunks, s.dim); err != nil {
		return err
	}
	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = chunkRow{ChunkText: c.Text, Source: sourceID, Vector: FloatsToBytes(c.Vector)}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("source = ?", sourceID).Delete(&chunkRow{})
		if res.Error != nil {
			return fmt.Errorf("delete chunks for %s: %w", sourceID, res.Error)
		}
		log.Printf("[Chunk Store] removed %d chunks for source %s", res.RowsAffected, sourceID)
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("insert chunks for %s: %w", sourceID, err)
		}
		return nil
	})
}

// FindSimilar loads the chunks of sourceID and returns the k nearest texts.
func (s *ChunkSQLite) FindSimilar(ctx context.Context, query []float32, sourceID string, k int) ([]string, error) {
	chunks, err := s.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return texts(RankByDistance(query, chunks, k)), nil
}

// ListBySource returns the chunks of sourceID in insertion order.
func (s *ChunkSQLite) ListBySource(ctx context.Context, sourceID string) ([]models.Chunk, error) {
	var rows []chunkRow
	if err := s.db.WithContext(ctx).Where("source = ?", sourceID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", sourceID, err)
	}
	out := make([]models.Chunk, len(rows))
	for i, r := range rows {
		out[i] = models.Chunk{
			ID:       strconv.FormatUint(uint64(r.ID), 10),
			Text:     r.ChunkText,
			SourceID: r.Source,
			Vector:   BytesToFloats(r.Vector),
		}
	}
	return out, nil
}
