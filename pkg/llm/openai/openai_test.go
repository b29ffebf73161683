package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/llm/openai"
)

var _ = Describe("Completer", func() {
	var (
		server   *httptest.Server
		lastAuth string
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			lastAuth = r.Header.Get("Authorization")
			if status != http.StatusOK {
				http.Error(w, `{"error":{"message":"rate limited"}}`, status)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"model": "gpt-4o-mini",
				"choices": []any{
					map[string]any{
						"message":       map[string]any{"role": "assistant", "content": "answer"},
						"finish_reason": "stop",
					},
				},
				"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4},
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := openai.NewCompleter(openai.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("returns the first choice", func() {
		c, err := openai.NewCompleter(openai.Config{APIKey: "sk-test", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		resp, err := c.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.GetText()).To(Equal("answer"))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(4))
		Expect(lastAuth).To(Equal("Bearer sk-test"))
	})

	It("wraps API errors in ErrCompletion", func() {
		status = http.StatusTooManyRequests
		c, err := openai.NewCompleter(openai.Config{APIKey: "sk-test", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Complete(context.Background(), &llm.ChatRequest{})
		Expect(err).To(MatchError(llm.ErrCompletion))
		Expect(err.Error()).To(ContainSubstring("429"))
	})
})
