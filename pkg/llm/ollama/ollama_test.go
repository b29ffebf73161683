package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/llm/ollama"
)

var _ = Describe("Completer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		reply    string
	)

	BeforeEach(func() {
		reply = "The answer [Source 1]."
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())
			json.NewEncoder(w).Encode(map[string]any{
				"model":             "llama3.2",
				"message":           map[string]any{"role": "assistant", "content": reply},
				"done":              true,
				"done_reason":       "stop",
				"prompt_eval_count": 10,
				"eval_count":        5,
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends messages and generation options", func() {
		c := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})
		Expect(c.Model()).To(Equal(ollama.DefaultModel))

		resp, err := c.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "sys"),
				llm.NewTextMessage(llm.RoleUser, "q"),
			},
			Temperature: 0.1,
			MaxTokens:   1024,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message.GetText()).To(Equal("The answer [Source 1]."))
		Expect(resp.Usage.TotalTokens).To(Equal(15))

		Expect(lastBody["stream"]).To(BeFalse())
		Expect(lastBody["messages"]).To(HaveLen(2))
		options := lastBody["options"].(map[string]any)
		Expect(options["temperature"]).To(BeNumerically("~", 0.1))
		Expect(options["num_predict"]).To(BeNumerically("==", 1024))
	})

	It("rejects an empty reply", func() {
		reply = "  "
		c := ollama.NewCompleter(ollama.Config{BaseURL: server.URL})

		_, err := c.Complete(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")},
		})
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})

	It("wraps transport errors in ErrCompletion", func() {
		c := ollama.NewCompleter(ollama.Config{BaseURL: "http://127.0.0.1:1"})

		_, err := c.Complete(context.Background(), &llm.ChatRequest{})
		Expect(err).To(MatchError(llm.ErrCompletion))
	})
})
