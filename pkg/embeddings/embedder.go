// Package embeddings turns text into fixed-dimension vectors.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts in one call. The result is
	// positionally aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model is the identity of the embedding model. Vectors from different
	// models are not comparable.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}
