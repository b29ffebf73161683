// Package llmutils constructs llm.Completer implementations by provider name.
package llmutils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/llm/anthropic"
	"github.com/papercomputeco/physrag/pkg/llm/ollama"
	"github.com/papercomputeco/physrag/pkg/llm/openai"
)

// Supported provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewCompleterOpts configures NewCompleter.
type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey overrides the provider's environment variable
	// (OPENAI_API_KEY or ANTHROPIC_API_KEY).
	APIKey  string
	Timeout time.Duration
}

// NewCompleter returns the completer for opts.ProviderType.
func NewCompleter(opts *NewCompleterOpts) (llm.Completer, error) {
	provider := strings.ToLower(opts.ProviderType)

	switch provider {
	case ProviderOllama, "":
		return ollama.NewCompleter(ollama.Config{
			BaseURL: opts.TargetURL,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		}), nil

	case ProviderOpenAI:
		return openai.NewCompleter(openai.Config{
			APIKey:  apiKey(opts.APIKey, "OPENAI_API_KEY"),
			BaseURL: opts.TargetURL,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})

	case ProviderAnthropic:
		return anthropic.NewCompleter(anthropic.Config{
			APIKey:  apiKey(opts.APIKey, "ANTHROPIC_API_KEY"),
			BaseURL: opts.TargetURL,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q (supported: %s, %s, %s)",
			opts.ProviderType, ProviderOllama, ProviderOpenAI, ProviderAnthropic)
	}
}

func apiKey(explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(env)
}
