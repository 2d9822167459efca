package models

// Chunk is a retrievable piece of a project narrative together with its
// embedding. SourceID is the project the text was derived from.
type Chunk struct {
	ID       string    `bson:"_id" json:"id"`
	Text     string    `bson:"chunk_text" json:"text"`
	SourceID string    `bson:"source" json:"sourceId"`
	Vector   []float32 `bson:"vector" json:"-"`
}

// ChunkInput is a chunk waiting to be stored.
type ChunkInput struct {
	Text   string
	Vector []float32
}

// ScoredChunk is a Chunk annotated with its distance to a query vector.
type ScoredChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
