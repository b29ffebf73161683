package testutils

import (
	"encoding/json"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// OllamaServer fakes the Ollama /api/embed and /api/chat endpoints so that
// commands can be exercised end to end without a model server.
type OllamaServer struct {
	*httptest.Server

	// Dimensions is the length of every returned embedding.
	Dimensions int

	// Reply is the assistant content returned by /api/chat.
	Reply string

	mu     sync.Mutex
	failOn string

	embedCalls atomic.Int64
	chatCalls  atomic.Int64
}

// NewOllamaServer starts a fake Ollama server. Close it when done.
func NewOllamaServer(dimensions int, reply string) *OllamaServer {
	s := &OllamaServer{Dimensions: dimensions, Reply: reply}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embed", s.handleEmbed)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	s.Server = httptest.NewServer(mux)

	return s
}

// SetFailOn makes /api/embed answer 500 for any request with an input
// containing substr. An empty substr clears it.
func (s *OllamaServer) SetFailOn(substr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = substr
}

// EmbedCalls returns the number of /api/embed requests served.
func (s *OllamaServer) EmbedCalls() int { return int(s.embedCalls.Load()) }

// ChatCalls returns the number of /api/chat requests served.
func (s *OllamaServer) ChatCalls() int { return int(s.chatCalls.Load()) }

func (s *OllamaServer) handleEmbed(w http.ResponseWriter, r *http.Request) {
	s.embedCalls.Add(1)

	var req struct {
		Input any `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var texts []string
	switch in := req.Input.(type) {
	case string:
		texts = []string{in}
	case []any:
		for _, t := range in {
			str, _ := t.(string)
			texts = append(texts, str)
		}
	}

	s.mu.Lock()
	failOn := s.failOn
	s.mu.Unlock()
	for _, t := range texts {
		if failOn != "" && strings.Contains(t, failOn) {
			http.Error(w, "model runner crashed", http.StatusInternalServerError)
			return
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, s.Dimensions)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
}

func (s *OllamaServer) handleChat(w http.ResponseWriter, r *http.Request) {
	s.chatCalls.Add(1)

	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":       req.Model,
		"message":     map[string]string{"role": "assistant", "content": s.Reply},
		"done":        true,
		"done_reason": "stop",
	})
}

// HashVector derives a deterministic non-zero vector of length dims from text.
func HashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}
