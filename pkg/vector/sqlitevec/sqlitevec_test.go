package sqlitevec_test

import (
	"context"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/vector"
	"github.com/papercomputeco/physrag/pkg/vector/sqlitevec"
)

func entry(id string, emb ...float32) vector.Entry {
	doc, _, _ := strings.Cut(id, "_chunk_")
	return vector.Entry{
		ID:        id,
		Embedding: emb,
		Metadata: vector.Metadata{
			DocumentID:     doc,
			Title:          "Title " + doc,
			Text:           "text of " + id,
			EmbeddingModel: "all-minilm",
		},
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		log    *slog.Logger
		driver *sqlitevec.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should persist entries across reopen", func() {
			path := GinkgoT().TempDir() + "/vectors.db"
			d, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: path, Dimensions: 3}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Upsert(ctx, []vector.Entry{entry("a_chunk_0", 1, 0, 0)})).To(Succeed())
			Expect(d.Close()).To(Succeed())

			d, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: path, Dimensions: 3}, log)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			n, err := d.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})
	})

	Context("with entries", func() {
		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 3}, log)
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Upsert(ctx, []vector.Entry{
				entry("a_chunk_0", 1, 0, 0),
				entry("a_chunk_1", 0.9, 0.1, 0),
				entry("b_chunk_0", 0, 1, 0),
				entry("c_chunk_0", 0, 0, 1),
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given no entries", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
		})

		It("should reject entries with the wrong dimension", func() {
			err := driver.Upsert(ctx, []vector.Entry{entry("x_chunk_0", 1, 2)})
			Expect(err).To(MatchError(vector.ErrInvalidEntry))
		})

		It("should return the closest entries with metadata", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a_chunk_0"))
			Expect(results[0].Score).To(BeNumerically("~", 1, 1e-4))
			Expect(results[0].Metadata.Title).To(Equal("Title a"))
			Expect(results[0].Metadata.EmbeddingModel).To(Equal("all-minilm"))
			Expect(results[1].ID).To(Equal("a_chunk_1"))
		})

		It("should return similarity scores in descending order", func() {
			results, err := driver.Query(ctx, []float32{0.5, 0.5, 0.1}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("should default topK to 10 when zero", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))
		})

		It("should replace an existing entry", func() {
			updated := entry("a_chunk_0", 0, 0, 1)
			updated.Metadata.Title = "Renamed"
			Expect(driver.Upsert(ctx, []vector.Entry{updated})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(4))

			got, err := driver.Get(ctx, []string{"a_chunk_0"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Metadata.Title).To(Equal("Renamed"))
			Expect(got[0].Embedding).To(Equal([]float32{0, 0, 1}))
		})

		It("should skip unknown ids on get", func() {
			got, err := driver.Get(ctx, []string{"b_chunk_0", "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("b_chunk_0"))
		})

		It("should remove entries from query results after deletion", func() {
			Expect(driver.Delete(ctx, []string{"a_chunk_0", "missing"})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			results, err := driver.Query(ctx, []float32{1, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].ID).To(Equal("a_chunk_1"))
		})
	})
})
