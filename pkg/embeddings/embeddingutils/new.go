// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/embeddings/gemini"
	"github.com/papercomputeco/physrag/pkg/embeddings/ollama"
)

// NewEmbedderOpts selects and configures an embedding provider.
type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   int

	// APIKey is used by hosted providers.
	APIKey string
}

// NewEmbedder builds the embedder for o.ProviderType.
func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "gemini":
		return gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			BaseURL:    o.TargetURL,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
