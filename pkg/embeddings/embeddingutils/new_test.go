package embeddingutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/embeddings/embeddingutils"
)

var _ = Describe("NewEmbedder", func() {
	It("builds an ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(context.Background(), &embeddingutils.NewEmbedderOpts{
			ProviderType: "ollama",
			Model:        "all-minilm",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal("all-minilm"))
	})

	It("passes the API key to gemini", func() {
		_, err := embeddingutils.NewEmbedder(context.Background(), &embeddingutils.NewEmbedderOpts{ProviderType: "gemini"})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(context.Background(), &embeddingutils.NewEmbedderOpts{ProviderType: "word2vec"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider: word2vec")))
	})
})
