package search_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/api/search"
	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/retrieval"
	"github.com/papercomputeco/physrag/pkg/retry"
	testutils "github.com/papercomputeco/physrag/pkg/utils/test"
	"github.com/papercomputeco/physrag/pkg/vector"
)

var _ = Describe("Searcher", func() {
	var (
		embedder     *testutils.MockEmbedder
		vectorDriver *testutils.MockVectorDriver
		searcher     *search.Searcher
		ctx          context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		vectorDriver = testutils.NewMockVectorDriver()
		planner := retrieval.NewPlanner(embedder, vectorDriver, retrieval.Config{
			Retry: retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond},
		}, logger.Nop())
		searcher = search.NewSearcher(planner, logger.Nop())
	})

	It("returns an empty result set for an empty index", func() {
		output, err := searcher.Search(ctx, "test", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Count).To(BeZero())
		Expect(output.Results).NotTo(BeNil())
	})

	It("maps metadata into results", func() {
		vectorDriver.Results = []vector.QueryResult{{
			ID:    "p_chunk_2",
			Score: 0.77,
			Metadata: vector.Metadata{
				DocumentID: "p",
				Title:      "Quantum Gravity",
				Filename:   "p.pdf",
				ChunkIndex: 2,
				Text:       "loop quantum gravity",
			},
		}}

		output, err := searcher.Search(ctx, "gravity", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Query).To(Equal("gravity"))
		Expect(output.Count).To(Equal(1))
		Expect(output.Results[0]).To(Equal(search.Result{
			ID:         "p_chunk_2",
			DocumentID: "p",
			Title:      "Quantum Gravity",
			Filename:   "p.pdf",
			ChunkIndex: 2,
			Score:      0.77,
			Text:       "loop quantum gravity",
		}))
	})

	It("lets the planner's configured default decide when topK is zero", func() {
		planner := retrieval.NewPlanner(embedder, vectorDriver, retrieval.Config{
			DefaultTopK: 2,
			Retry:       retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond},
		}, logger.Nop())
		for _, id := range []string{"a", "b", "c", "d"} {
			vectorDriver.Results = append(vectorDriver.Results, vector.QueryResult{ID: id, Score: 0.5})
		}

		output, err := search.NewSearcher(planner, logger.Nop()).Search(ctx, "q", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Count).To(Equal(2))
	})

	It("returns an error when embedding fails", func() {
		embedder.FailOn = "fail-query"
		_, err := searcher.Search(ctx, "fail-query", 5)
		Expect(err).To(MatchError(retrieval.ErrRetrieval))
	})

	It("returns an error when vector query fails", func() {
		vectorDriver.FailQuery = true
		_, err := searcher.Search(ctx, "test", 5)
		Expect(err).To(MatchError(retrieval.ErrRetrieval))
	})
})
