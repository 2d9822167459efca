package service

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder maps text to a vector by hashing its lowercased words into
// dim buckets. It needs no network and is deterministic, which makes it
// useful for local runs and tests. Similar wording yields nearby vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns an embedder producing dim-length unit vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashEmbedder{dim: dim}
}

// Embed never fails.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[f.Sum32()%uint32(h.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// StaticLLM answers every prompt with the same reply.
type StaticLLM struct {
	Reply string
}

// GenerateResponse returns the fixed reply.
func (s StaticLLM) GenerateResponse(context.Context, string) (string, error) {
	return s.Reply, nil
}
