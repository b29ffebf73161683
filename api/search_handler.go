package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/retrieval"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, defaults to retrieval.top_k): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	// Verify search is configured
	if s.searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured: vector driver and embedder are required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	output, err := s.searcher.Search(c.UserContext(), query, topK)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, retrieval.ErrModelMismatch):
			status = fiber.StatusServiceUnavailable
		case errors.Is(err, retrieval.ErrRetrieval):
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(ErrorResponse{
			Error: answer.UserMessage(err),
		})
	}

	return c.JSON(output)
}
