package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when a vector has an unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
