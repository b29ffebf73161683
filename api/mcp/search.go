package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/physrag/api/search"
	"github.com/papercomputeco/physrag/pkg/answer"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the indexed physics papers using semantic search. Returns the most relevant passages for the query with their paper titles and similarity scores."
)

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input apisearch.Input) (*mcp.CallToolResult, apisearch.Output, error) {
	logger := s.config.Logger

	logger.Debug("MCP search request",
		"query", input.Query,
		"top_k", input.TopK,
	)

	if input.Query == "" {
		return errorResult("query is required"), apisearch.Output{}, nil
	}

	output, err := s.config.Searcher.Search(ctx, input.Query, input.TopK)
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return errorResult(answer.UserMessage(err)), apisearch.Output{}, nil
	}

	return jsonResult(logger, *output)
}

// jsonResult serializes the structured output as JSON for the text field.
// Tools returning structured content also return serialized JSON in a
// TextContent block for backwards compatibility.
func jsonResult[T any](logger *slog.Logger, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", "error", err)
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
