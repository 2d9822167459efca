package models

import "errors"

// Sentinel errors shared by the storage, service and transport layers.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmbeddingUnavailable  = errors.New("embedding service unavailable")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrResponseParse         = errors.New("could not parse model response")
	ErrDimensionMismatch     = errors.New("embedding dimension mismatch")
)
