package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/physrag/pkg/llm"
)

// ErrMockCompletion is returned by MockCompleter when Fail is set.
var ErrMockCompletion = errors.New("mock completion failure")

// MockCompleter is a test completer that returns a canned reply and records
// every request it receives.
type MockCompleter struct {
	mu sync.Mutex

	// Reply is returned as the assistant message.
	Reply string

	// Fail causes Complete to return ErrMockCompletion wrapped in llm.ErrCompletion.
	Fail bool

	Requests []*llm.ChatRequest
}

func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

func (m *MockCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	if m.Fail {
		return nil, errors.Join(llm.ErrCompletion, ErrMockCompletion)
	}
	return &llm.ChatResponse{
		Model:   "mock-llm",
		Message: llm.NewTextMessage(llm.RoleAssistant, m.Reply),
	}, nil
}

// Calls returns the number of Complete invocations.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockCompleter) Model() string {
	return "mock-llm"
}

func (m *MockCompleter) Close() error {
	return nil
}

var _ llm.Completer = (*MockCompleter)(nil)
