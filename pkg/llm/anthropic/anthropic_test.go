package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/llm/anthropic"
)

var _ = Describe("Completer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":          "msg_1",
				"type":        "message",
				"role":        "assistant",
				"model":       "claude-haiku-4-5-20251001",
				"stop_reason": "end_turn",
				"content": []any{
					map[string]any{"type": "text", "text": "grounded answer"},
				},
				"usage": map[string]any{"input_tokens": 12, "output_tokens": 3},
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := anthropic.NewCompleter(anthropic.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("moves system messages to the system field", func() {
		c, err := anthropic.NewCompleter(anthropic.Config{APIKey: "key", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		resp, err := c.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "answer from context"),
				llm.NewTextMessage(llm.RoleUser, "q"),
			},
			Temperature: 0.1,
			MaxTokens:   1024,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.GetText()).To(Equal("grounded answer"))
		Expect(resp.StopReason).To(Equal("end_turn"))
		Expect(resp.Usage.TotalTokens).To(Equal(15))

		Expect(lastBody["messages"]).To(HaveLen(1))
		Expect(lastBody["max_tokens"]).To(BeNumerically("==", 1024))
		system := lastBody["system"].([]any)
		Expect(system[0].(map[string]any)["text"]).To(Equal("answer from context"))
	})
})
