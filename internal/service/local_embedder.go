package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

// Ensure LocalEmbedder implements the interface.
var _ Embedder = (*LocalEmbedder)(nil)

// DefaultLocalEmbeddingModel produces 384-dimensional vectors.
const DefaultLocalEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

// localEmbedScript reads the text from stdin so no escaping is needed.
const localEmbedScript = `
import sys
from sentence_transformers import SentenceTransformer

model = SentenceTransformer(sys.argv[1])
embedding = model.encode(sys.stdin.read(), normalize_embeddings=True)
print(','.join(map(str, embedding.tolist())))
`

// LocalEmbedder runs a sentence-transformers model in a python3 subprocess.
type LocalEmbedder struct {
	python string
	model  string
}

// NewLocalEmbedder checks that python3 is on PATH.
func NewLocalEmbedder(model string) (*LocalEmbedder, error) {
	if model == "" {
		model = DefaultLocalEmbeddingModel
	}
	python, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("local embedder: %w", err)
	}
	return &LocalEmbedder{python: python, model: model}, nil
}

// Embed generates a vector for text.
func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cmd := exec.CommandContext(ctx, l.python, "-c", localEmbedScript, l.model)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("[Embedding] python stderr: %s", stderr.String())
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return parseVector(stdout.String())
}

// parseVector reads a comma-separated list of floats.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty embedding output")
	}
	values := strings.Split(s, ",")
	result := make([]float32, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedding value %q: %w", v, err)
		}
		result[i] = float32(f)
	}
	return result, nil
}

// Close is a no-op for local embedder
func (l *LocalEmbedder) Close() error {
	return nil
}
