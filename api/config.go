// Package api provides the HTTP API for asking questions about, and
// searching, the indexed paper corpus.
package api

import (
	"context"

	apisearch "github.com/papercomputeco/physrag/api/search"
	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/vector"
)

// Asker answers a question end to end.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Asker answers POST /v1/query. Nil disables question answering.
	Asker Asker

	// Planner backs GET /v1/search. Nil disables search.
	Planner apisearch.Planner

	// VectorDriver backs GET /v1/index/stats.
	VectorDriver vector.Driver

	// EmbeddingModel and Dimensions are reported by /v1/index/stats.
	EmbeddingModel string
	Dimensions     int

	// DisableMCP skips mounting the MCP handler at /mcp.
	DisableMCP bool
}
