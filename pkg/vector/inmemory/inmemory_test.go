package inmemory_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/vector"
	"github.com/papercomputeco/physrag/pkg/vector/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		Expect(driver.Upsert(ctx, []vector.Entry{
			{ID: "a_chunk_0", Embedding: []float32{1, 0}, Metadata: vector.Metadata{DocumentID: "a", Title: "A"}},
			{ID: "b_chunk_0", Embedding: []float32{0, 1}, Metadata: vector.Metadata{DocumentID: "b"}},
			{ID: "c_chunk_0", Embedding: []float32{1, 1}, Metadata: vector.Metadata{DocumentID: "c"}},
		})).To(Succeed())
	})

	It("ranks by cosine similarity", func() {
		results, err := driver.Query(ctx, []float32{1, 0}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].ID).To(Equal("a_chunk_0"))
		Expect(results[0].Score).To(BeNumerically("~", 1, 1e-6))
		Expect(results[1].ID).To(Equal("c_chunk_0"))
		Expect(results[2].ID).To(Equal("b_chunk_0"))
		Expect(results[0].Metadata.Title).To(Equal("A"))
	})

	It("keeps insertion order for equal scores", func() {
		Expect(driver.Upsert(ctx, []vector.Entry{
			{ID: "d_chunk_0", Embedding: []float32{2, 0}},
		})).To(Succeed())

		results, err := driver.Query(ctx, []float32{1, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].ID).To(Equal("a_chunk_0"))
		Expect(results[1].ID).To(Equal("d_chunk_0"))
	})

	It("replaces entries on upsert", func() {
		Expect(driver.Upsert(ctx, []vector.Entry{
			{ID: "a_chunk_0", Embedding: []float32{0, 1}, Metadata: vector.Metadata{Title: "A2"}},
		})).To(Succeed())

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))

		got, err := driver.Get(ctx, []string{"a_chunk_0"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got[0].Metadata.Title).To(Equal("A2"))
	})

	It("truncates long text on write", func() {
		Expect(driver.Upsert(ctx, []vector.Entry{
			{ID: "long", Embedding: []float32{1, 0}, Metadata: vector.Metadata{Text: strings.Repeat("x", 1500)}},
		})).To(Succeed())

		got, err := driver.Get(ctx, []string{"long"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got[0].Metadata.Text).To(HaveLen(vector.MaxTextRunes))
	})

	It("deletes entries", func() {
		Expect(driver.Delete(ctx, []string{"a_chunk_0", "missing"})).To(Succeed())

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		results, err := driver.Query(ctx, []float32{1, 0}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
	})

	It("rejects entries without embeddings", func() {
		err := driver.Upsert(ctx, []vector.Entry{{ID: "x"}})
		Expect(err).To(MatchError(vector.ErrInvalidEntry))
	})

	It("returns nothing from an empty store", func() {
		results, err := inmemory.NewDriver().Query(ctx, []float32{1, 0}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})
