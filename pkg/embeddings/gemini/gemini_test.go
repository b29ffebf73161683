package gemini_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/embeddings/gemini"
)

var _ = Describe("NewEmbedder", func() {
	It("requires an API key", func() {
		_, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("defaults the model", func() {
		e, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{APIKey: "test-key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal(gemini.DefaultEmbeddingModel))
	})

	It("returns an empty result for no texts without calling the API", func() {
		e, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{APIKey: "test-key", Model: "custom"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal("custom"))

		vs, err := e.EmbedBatch(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vs).To(BeEmpty())
	})
})
