// Package mcp provides an MCP (Model Context Protocol) server exposing the
// ask and search tools over the paper index.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/physrag/api/search"
	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/utils"
)

// Asker answers a question end to end.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

type Config struct {
	// Asker enables the ask tool.
	Asker Asker

	// Searcher enables the search tool.
	Searcher *apisearch.Searcher

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with a tool for each configured
// collaborator.
func NewServer(c Config) (*Server, error) {
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if !c.Noop && c.Asker == nil && c.Searcher == nil {
		return nil, errors.New("an asker or a searcher is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "physrag",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Asker != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        askToolName,
				Description: askDescription,
			}, s.handleAsk)
		}
		if c.Searcher != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        searchToolName,
				Description: searchDescription,
			}, s.handleSearch)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
