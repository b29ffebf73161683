// Package search provides shared search types and logic for semantic search
// over indexed paper chunks. It is used by both the REST API endpoint and
// the MCP server tool.
package search

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/physrag/pkg/vector"
)

// Planner ranks indexed chunks for a query.
type Planner interface {
	Plan(ctx context.Context, query string, topK int) ([]vector.QueryResult, error)
}

// Input represents the input arguments for a search request.
type Input struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant paper passages"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: the server's configured top_k)"`
}

// Result represents a single search result.
type Result struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Filename   string  `json:"filename,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

// Output represents the output of a search operation.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Searcher runs retrieval-only searches.
type Searcher struct {
	planner Planner
	logger  *slog.Logger
}

// NewSearcher creates a Searcher over planner.
func NewSearcher(planner Planner, logger *slog.Logger) *Searcher {
	return &Searcher{
		planner: planner,
		logger:  logger,
	}
}

// Search returns up to topK passages for query, best first. A topK of zero
// leaves the choice to the planner's configured default.
func (s *Searcher) Search(ctx context.Context, query string, topK int) (*Output, error) {
	s.logger.Debug("search request",
		"query", query,
		"top_k", topK,
	)

	results, err := s.planner.Plan(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Query:   query,
		Results: make([]Result, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, BuildResult(r))
	}
	out.Count = len(out.Results)

	return out, nil
}

// BuildResult converts a vector query result into a Result.
func BuildResult(r vector.QueryResult) Result {
	return Result{
		ID:         r.ID,
		DocumentID: r.Metadata.DocumentID,
		Title:      r.Metadata.Title,
		Filename:   r.Metadata.Filename,
		ChunkIndex: r.Metadata.ChunkIndex,
		Score:      r.Score,
		Text:       r.Metadata.Text,
	}
}
