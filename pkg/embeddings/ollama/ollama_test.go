package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())

			if status != http.StatusOK {
				http.Error(w, "boom", status)
				return
			}

			n := 1
			if list, ok := lastBody["input"].([]any); ok {
				n = len(list)
			}
			out := make([][]float32, n)
			for i := range out {
				out[i] = []float32{float32(i), 1}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("defaults to all-minilm", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal("all-minilm"))
	})

	It("embeds a single text", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "m"})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0, 1}))
		Expect(lastBody["model"]).To(Equal("m"))
		Expect(lastBody["input"]).To(Equal("hello"))
	})

	It("embeds a batch in one request", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		vs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vs).To(HaveLen(3))
		Expect(vs[2]).To(Equal([]float32{2, 1}))
	})

	It("wraps server errors", func() {
		status = http.StatusInternalServerError
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("status 500"))
	})
})
