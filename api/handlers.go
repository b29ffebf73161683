package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/retrieval"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question string `json:"question" validate:"required"`
}

// QueryResponse is the body of a POST /v1/query response. On a generation
// failure Error is set and Sources still lists the retrieved passages.
type QueryResponse struct {
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Sources  []answer.Source `json:"sources"`
	Error    string          `json:"error,omitempty"`
}

// IndexStats is the body of GET /v1/index/stats.
type IndexStats struct {
	Count      int    `json:"count"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleQuery answers a question from the indexed papers.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	if s.config.Asker == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: answer.ErrNotConfigured.Error(),
		})
	}

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: answer.ErrInvalidQuestion.Error(),
		})
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: answer.ErrInvalidQuestion.Error(),
		})
	}

	result, err := s.config.Asker.Ask(c.UserContext(), req.Question)
	switch {
	case err == nil:
		return c.JSON(QueryResponse{
			Question: result.Question,
			Answer:   result.Text,
			Sources:  result.Sources,
		})

	case errors.Is(err, answer.ErrInvalidQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})

	case errors.Is(err, answer.ErrNotConfigured), errors.Is(err, retrieval.ErrModelMismatch):
		s.logger.Error("query rejected, service misconfigured", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: answer.UserMessage(err)})

	case errors.Is(err, retrieval.ErrRetrieval):
		s.logger.Error("query retrieval failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: answer.UserMessage(err)})

	case errors.Is(err, answer.ErrGeneration):
		s.logger.Error("query generation failed", "error", err)
		resp := QueryResponse{
			Question: req.Question,
			Error:    answer.UserMessage(err),
			Sources:  []answer.Source{},
		}
		if result != nil {
			resp.Sources = result.Sources
		}
		return c.Status(fiber.StatusBadGateway).JSON(resp)

	default:
		s.logger.Error("query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: answer.UserMessage(err)})
	}
}

// handleIndexStats reports the size and embedding model of the index.
func (s *Server) handleIndexStats(c *fiber.Ctx) error {
	if s.config.VectorDriver == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "vector store is not configured",
		})
	}

	count, err := s.config.VectorDriver.Count(c.UserContext())
	if err != nil {
		s.logger.Error("failed to count index entries", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to count index entries"})
	}

	return c.JSON(IndexStats{
		Count:      count,
		Model:      s.config.EmbeddingModel,
		Dimensions: s.config.Dimensions,
	})
}
