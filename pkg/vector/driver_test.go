package vector_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/vector"
)

var _ = Describe("Metadata", func() {
	It("truncates text and title by runes", func() {
		m := vector.Metadata{
			Title: strings.Repeat("é", 250),
			Text:  strings.Repeat("ü", 1200),
		}.Truncated()

		Expect([]rune(m.Title)).To(HaveLen(vector.MaxTitleRunes))
		Expect([]rune(m.Text)).To(HaveLen(vector.MaxTextRunes))
	})

	It("leaves short fields alone", func() {
		m := vector.Metadata{Title: "t", Text: "x"}
		Expect(m.Truncated()).To(Equal(m))
	})
})

var _ = Describe("ValidateEntries", func() {
	It("accepts consistent entries", func() {
		Expect(vector.ValidateEntries([]vector.Entry{
			{ID: "a", Embedding: []float32{1, 2}},
			{ID: "b", Embedding: []float32{3, 4}},
		})).To(Succeed())
	})

	It("rejects mixed dimensions", func() {
		err := vector.ValidateEntries([]vector.Entry{
			{ID: "a", Embedding: []float32{1, 2}},
			{ID: "b", Embedding: []float32{3}},
		})
		Expect(err).To(MatchError(vector.ErrInvalidEntry))
	})

	It("rejects missing ids", func() {
		Expect(vector.ValidateEntries([]vector.Entry{{Embedding: []float32{1}}})).To(MatchError(vector.ErrInvalidEntry))
	})
})

var _ = Describe("CosineSimilarity", func() {
	It("scores identical directions as 1", func() {
		Expect(vector.CosineSimilarity([]float32{1, 2}, []float32{2, 4})).To(BeNumerically("~", 1, 1e-6))
	})

	It("scores orthogonal vectors as 0", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0, 1e-6))
	})

	It("returns 0 for mismatched or zero vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1}, []float32{1, 2})).To(BeZero())
		Expect(vector.CosineSimilarity([]float32{0, 0}, []float32{1, 2})).To(BeZero())
	})
})
