package repository

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// FloatsToBytes packs a vector into a little-endian blob for SQL storage.
func FloatsToBytes(v []float32) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// BytesToFloats is the inverse of FloatsToBytes. Trailing bytes that do not
// form a whole float32 are ignored.
func BytesToFloats(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(b[:n*4]), binary.LittleEndian, &out)
	return out
}

// L2Distance is the Euclidean distance between two equal-length vectors.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// RankByDistance returns the k chunks closest to query, nearest first.
// Chunks whose vector length differs from the query are skipped. Ties keep
// their input order.
func RankByDistance(query []float32, chunks []models.Chunk, k int) []models.ScoredChunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != len(query) {
			continue
		}
		scored = append(scored, models.ScoredChunk{Chunk: c, Distance: L2Distance(query, c.Vector)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// texts extracts chunk text in rank order.
func texts(scored []models.ScoredChunk) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Text
	}
	return out
}

// checkDimensions enforces that every vector has length dim. A dim of zero
// only requires the batch to agree with itself.
func checkDimensions(chunks []models.ChunkInput, dim int) error {
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("%w: chunk %d has no vector", models.ErrDimensionMismatch, i)
		}
		want := dim
		if want == 0 {
			want = len(chunks[0].Vector)
		}
		if len(c.Vector) != want {
			return fmt.Errorf("%w: chunk %d has %d values, want %d", models.ErrDimensionMismatch, i, len(c.Vector), want)
		}
	}
	return nil
}
