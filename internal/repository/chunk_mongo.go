package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChunkMongo stores chunks as documents.
//
// Expected schema:
//
//	chunk_embedding
//	  { _id: string, chunk_text: string, source: string, vector: []float32 }
//
// When vectorIdx names an Atlas Vector Search index (euclidean, with source
// declared as a filter field) similarity runs server side. Otherwise the
// source's documents are loaded and ranked here.
type ChunkMongo struct {
	col       *mongo.Collection
	vectorIdx string
	dim       int
}

// NewChunkMongo wires the collection and makes sure source is indexed.
func NewChunkMongo(ctx context.Context, db *mongo.Database, collection, vectorIdx string, dim int) (*ChunkMongo, error) {
	col := db.Collection(collection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "source", Value: 1}},
		Options: options.Index().SetName("source_1"),
	})
	if err != nil {
		return nil, fmt.Errorf("create source index: %w", err)
	}
	return &ChunkMongo{col: col, vectorIdx: vectorIdx, dim: dim}, nil
}

// ReplaceChunks deletes the source's documents, then inserts the new ones.
// The two steps are not atomic; callers serialise ingests per source.
func (r *ChunkMongo) ReplaceChunks(ctx context.Context, sourceID string, chunks []models.ChunkInput) error {
	if err := checkDimensions(chunks, r.dim); err != nil {
		return err
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"source": sourceID})
	if err != nil {
		return fmt.Errorf("delete chunks for %s: %w", sourceID, err)
	}
	log.Printf("[Chunk Store] removed %d chunks for source %s", res.DeletedCount, sourceID)
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = models.Chunk{
			ID:       uuid.NewString(),
			Text:     c.Text,
			SourceID: sourceID,
			Vector:   c.Vector,
		}
	}
	if _, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert chunks for %s: %w", sourceID, err)
	}
	return nil
}

// FindSimilar returns up to k chunk texts of sourceID, nearest first.
func (r *ChunkMongo) FindSimilar(ctx context.Context, query []float32, sourceID string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	if r.vectorIdx == "" {
		chunks, err := r.ListBySource(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return texts(RankByDistance(query, chunks, k)), nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: r.vectorIdx},
			{Key: "queryVector", Value: query},
			{Key: "path", Value: "vector"},
			{Key: "numCandidates", Value: k * 10},
			{Key: "limit", Value: k},
			{Key: "filter", Value: bson.M{"source": sourceID}},
		}}},
		{{Key: "$project", Value: bson.M{
			"chunk_text": 1,
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search for %s: %w", sourceID, err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Text string `bson:"chunk_text"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode vector search: %w", err)
	}
	result := make([]string, len(out))
	for i, c := range out {
		result[i] = c.Text
	}
	return result, nil
}

// ListBySource returns the chunks of sourceID in insertion order.
func (r *ChunkMongo) ListBySource(ctx context.Context, sourceID string) ([]models.Chunk, error) {
	cur, err := r.col.Find(ctx, bson.M{"source": sourceID}, options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", sourceID, err)
	}
	defer cur.Close(ctx)

	var chunks []models.Chunk
	if err := cur.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks for %s: %w", sourceID, err)
	}
	return chunks, nil
}
