package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/physrag/api/mcp"
	apisearch "github.com/papercomputeco/physrag/api/search"
)

// Server is the API server for querying the paper index
type Server struct {
	config   Config
	searcher *apisearch.Searcher
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server. Clients in config are shared with the
// MCP server mounted at /mcp.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}
	if config.Planner != nil {
		s.searcher = apisearch.NewSearcher(config.Planner, logger)
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/query", s.handleQuery)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/index/stats", s.handleIndexStats)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Asker:    config.Asker,
			Searcher: s.searcher,
			Noop:     config.Asker == nil && s.searcher == nil,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
