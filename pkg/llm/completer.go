// Package llm holds the provider-agnostic chat types and the Completer
// interface implemented by each language model backend.
package llm

import "context"

// Completer generates a reply to a conversation.
type Completer interface {
	// Complete sends req and returns the assistant's reply.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Model returns the configured model name.
	Model() string

	// Close releases any resources held by the completer.
	Close() error
}
