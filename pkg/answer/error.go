package answer

import (
	"errors"

	"github.com/papercomputeco/physrag/pkg/retrieval"
)

var (
	// ErrGeneration wraps a failed language model call.
	ErrGeneration = errors.New("answer generation failed")

	// ErrInvalidQuestion is returned for an empty question.
	ErrInvalidQuestion = errors.New("question must be a non-empty string")

	// ErrNotConfigured is returned when a Service is missing a collaborator.
	ErrNotConfigured = errors.New("service is not configured")
)

// User-facing messages for each error class.
const (
	MessageNotConfigured   = "The question answering service is not configured. Check the vector store and model settings."
	MessageRetrieval       = "Could not search the paper index right now. Please try again shortly."
	MessageGeneration      = "Found relevant passages but could not generate an answer. The sources are listed below."
	MessageInvalidQuestion = "Please enter a question."
	MessageUnknown         = "Something went wrong while answering the question."
)

// UserMessage maps an error from Ask to a message suitable for end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuestion):
		return MessageInvalidQuestion
	case errors.Is(err, ErrNotConfigured), errors.Is(err, retrieval.ErrModelMismatch):
		return MessageNotConfigured
	case errors.Is(err, retrieval.ErrRetrieval):
		return MessageRetrieval
	case errors.Is(err, ErrGeneration):
		return MessageGeneration
	default:
		return MessageUnknown
	}
}
