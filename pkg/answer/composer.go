// Package answer turns ranked passages into a grounded, cited answer.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/retry"
	"github.com/papercomputeco/physrag/pkg/vector"
)

const (
	// InsufficientInformation is the answer when retrieval finds nothing.
	InsufficientInformation = "I don't have enough information in the indexed papers to answer this question."

	// SystemInstruction is sent with every generation request.
	SystemInstruction = "You are a research assistant answering questions about physics papers. " +
		"Answer using only the provided context. " +
		"Cite the passages you rely on by their reference, for example [Source 2]. " +
		"If the context does not contain enough information to answer, say so explicitly instead of guessing."

	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1024

	// ExcerptRunes bounds Source.TextExcerpt.
	ExcerptRunes = 300
)

// Source is a passage an answer may cite. Sources are numbered from 1 in
// the order they were ranked.
type Source struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	TextExcerpt string  `json:"text_excerpt"`
	Score       float32 `json:"score"`
	DocumentID  string  `json:"document_id,omitempty"`
	ChunkIndex  int     `json:"chunk_index"`
}

// Answer is a generated answer with its sources.
type Answer struct {
	Question string   `json:"question"`
	Text     string   `json:"answer"`
	Sources  []Source `json:"sources"`

	// Insufficient is set when no passages were retrieved and the model was
	// not called.
	Insufficient bool `json:"insufficient,omitempty"`
}

// ComposerConfig configures a Composer.
type ComposerConfig struct {
	Temperature float64
	MaxTokens   int
	Retry       retry.Policy
}

// Composer prompts a language model with retrieved passages.
type Composer struct {
	completer llm.Completer
	cfg       ComposerConfig
	logger    *slog.Logger
}

// NewComposer creates a Composer. A zero Temperature is replaced by
// DefaultTemperature.
func NewComposer(completer llm.Completer, cfg ComposerConfig, logger *slog.Logger) *Composer {
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	c := &Composer{
		completer: completer,
		cfg:       cfg,
		logger:    logger,
	}
	c.cfg.Retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("generation failed, retrying",
			"model", completer.Model(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}
	return c
}

// Compose answers question from results. With no results the model is not
// called. On a model failure the returned Answer still carries the sources
// alongside an error wrapping ErrGeneration.
func (c *Composer) Compose(ctx context.Context, question string, results []vector.QueryResult) (*Answer, error) {
	answer := &Answer{
		Question: question,
		Sources:  Sources(results),
	}

	if len(results) == 0 {
		answer.Text = InsufficientInformation
		answer.Insufficient = true
		return answer, nil
	}

	req := &llm.ChatRequest{
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, SystemInstruction),
			llm.NewTextMessage(llm.RoleUser, Prompt(question, results)),
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	resp, err := retry.Value(ctx, c.cfg.Retry, func(ctx context.Context) (*llm.ChatResponse, error) {
		return c.completer.Complete(ctx, req)
	})
	if err != nil {
		return answer, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	answer.Text = strings.TrimSpace(resp.Message.GetText())
	return answer, nil
}

// Prompt builds the user prompt: one "[Source N] (<title>, chunk <i>)" block
// per result in rank order, then the question.
func Prompt(question string, results []vector.QueryResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d] (%s, chunk %d)\n%s", i+1, r.Metadata.Title, r.Metadata.ChunkIndex, r.Metadata.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// Sources converts results to citations, keeping order and scores.
func Sources(results []vector.QueryResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ID:          r.ID,
			Title:       r.Metadata.Title,
			TextExcerpt: excerpt(r.Metadata.Text, ExcerptRunes),
			Score:       r.Score,
			DocumentID:  r.Metadata.DocumentID,
			ChunkIndex:  r.Metadata.ChunkIndex,
		}
	}
	return sources
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
