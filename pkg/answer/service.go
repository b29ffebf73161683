package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/physrag/pkg/vector"
)

// Retriever ranks passages for a question.
type Retriever interface {
	Plan(ctx context.Context, question string, topK int) ([]vector.QueryResult, error)
}

// Service answers questions end to end: retrieve, then compose.
type Service struct {
	retriever Retriever
	composer  *Composer
	topK      int
	logger    *slog.Logger
}

// NewService creates a Service. topK <= 0 uses the retriever's default.
func NewService(retriever Retriever, composer *Composer, topK int, logger *slog.Logger) *Service {
	return &Service{
		retriever: retriever,
		composer:  composer,
		topK:      topK,
		logger:    logger,
	}
}

// Ask validates question, retrieves passages and composes an answer. The
// answer is returned alongside ErrGeneration so its sources can be reported.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if s == nil || s.retriever == nil || s.composer == nil {
		return nil, ErrNotConfigured
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}

	results, err := s.retriever.Plan(ctx, question, s.topK)
	if err != nil {
		s.logger.Error("retrieval failed", "error", err)
		return nil, err
	}

	s.logger.Debug("retrieved passages", "count", len(results))

	answer, err := s.composer.Compose(ctx, question, results)
	if err != nil {
		s.logger.Error("generation failed", "sources", len(answer.Sources), "error", err)
		return answer, fmt.Errorf("answering %q: %w", question, err)
	}
	return answer, nil
}
