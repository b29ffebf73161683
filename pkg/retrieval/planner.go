// Package retrieval turns a question into a ranked list of passages.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/retry"
	"github.com/papercomputeco/physrag/pkg/vector"
)

// DefaultTopK is used when Plan is called with topK <= 0.
const DefaultTopK = 5

// Config configures a Planner.
type Config struct {
	// DefaultTopK overrides DefaultTopK for requests without a topK.
	DefaultTopK int

	// MinScore drops results scoring below it. Zero disables the floor.
	MinScore float32

	Retry retry.Policy
}

// Planner embeds questions and queries the vector store. It holds no
// per-request state and is safe for concurrent use.
type Planner struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	cfg      Config
	logger   *slog.Logger
}

// NewPlanner creates a Planner. embedder must be the embedder the index was
// built with.
func NewPlanner(embedder embeddings.Embedder, driver vector.Driver, cfg Config, logger *slog.Logger) *Planner {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}

	p := &Planner{
		embedder: embedder,
		driver:   driver,
		cfg:      cfg,
		logger:   logger,
	}
	p.cfg.Retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.Warn("vector query failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}
	return p
}

// Plan returns up to topK passages for question, highest score first. Ties
// keep the store's order. No matches is an empty slice and a nil error.
func (p *Planner) Plan(ctx context.Context, question string, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}

	p.logger.Debug("retrieval request", "question", question, "top_k", topK)

	queryEmbedding, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %w", ErrRetrieval, err)
	}

	results, err := retry.Value(ctx, p.cfg.Retry, func(ctx context.Context) ([]vector.QueryResult, error) {
		return p.driver.Query(ctx, queryEmbedding, topK)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying vector store: %w", ErrRetrieval, err)
	}

	model := p.embedder.Model()
	for _, r := range results {
		if r.Metadata.EmbeddingModel != "" && r.Metadata.EmbeddingModel != model {
			return nil, fmt.Errorf("%w: %w: index built with %q, question embedded with %q",
				ErrRetrieval, ErrModelMismatch, r.Metadata.EmbeddingModel, model)
		}
	}

	ranked := make([]vector.QueryResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	out := make([]vector.QueryResult, 0, min(len(ranked), topK))
	for _, r := range ranked {
		if p.cfg.MinScore > 0 && r.Score < p.cfg.MinScore {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}

	return out, nil
}

// Model returns the embedding model questions are embedded with.
func (p *Planner) Model() string {
	return p.embedder.Model()
}
