// Package anthropic implements pkg/llm's Completer with the Anthropic SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/physrag/pkg/llm"
)

const (
	DefaultModel = "claude-haiku-4-5-20251001"

	// defaultMaxTokens is sent when the request leaves MaxTokens unset; the
	// Messages API requires it.
	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic completer.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Completer calls the Anthropic Messages API.
type Completer struct {
	client sdk.Client
	model  string
}

// NewCompleter creates an Anthropic completer.
func NewCompleter(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		// Retries are applied by the caller's policy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Completer{
		client: sdk.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete sends req to the Messages API. System messages are moved to the
// dedicated system field.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, messages := llm.SplitSystem(req.Messages)

	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(req.Temperature),
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	for _, m := range messages {
		block := sdk.NewTextBlock(m.GetText())
		if m.Role == llm.RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic API call: %w", llm.ErrCompletion, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.ChatResponse{
		Model:      string(resp.Model),
		Message:    llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason: string(resp.StopReason),
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// Model returns the configured model.
func (c *Completer) Model() string {
	return c.model
}

// Close is a no-op.
func (c *Completer) Close() error {
	return nil
}

var _ llm.Completer = (*Completer)(nil)
