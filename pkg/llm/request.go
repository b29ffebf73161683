package llm

// ChatRequest represents a provider-agnostic chat completion request.
type ChatRequest struct {
	// Model overrides the completer's configured model when set.
	Model string `json:"model,omitempty"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Generation parameters (unified across providers)
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}
