package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/ledger"
)

// LedgerStoreBehaviors registers the specs every ledger.Store must pass.
// newStore is called before each test; the store is closed after it.
func LedgerStoreBehaviors(newStore func() ledger.Store) {
	var (
		ctx   context.Context
		store ledger.Store
		t0    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = nil
		store = newStore()
		t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if store != nil {
			Expect(store.Close()).To(Succeed())
		}
	})

	run := func(id string, started time.Time) *ledger.Run {
		return &ledger.Run{
			ID:             id,
			StartedAt:      started,
			FinishedAt:     started.Add(90 * time.Second),
			Source:         "data/extracted_text/all_papers.json",
			EmbeddingModel: "all-minilm",
			Documents:      10,
			Succeeded:      8,
			Skipped:        1,
			Failed:         1,
			Chunks:         120,
			Written:        115,
		}
	}

	It("returns ErrNotFound when empty", func() {
		_, err := store.LatestRun(ctx)
		Expect(err).To(MatchError(ledger.ErrNotFound))
	})

	It("saves and reads back a run", func() {
		Expect(store.SaveRun(ctx, run("r1", t0), nil)).To(Succeed())

		got, err := store.LatestRun(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal("r1"))
		Expect(got.StartedAt).To(BeTemporally("~", t0, time.Second))
		Expect(got.Duration()).To(BeNumerically("~", 90*time.Second, time.Second))
		Expect(got.Source).To(Equal("data/extracted_text/all_papers.json"))
		Expect(got.EmbeddingModel).To(Equal("all-minilm"))
		Expect(got.Chunks).To(Equal(120))
		Expect(got.Written).To(Equal(115))
		Expect(got.Failed).To(Equal(1))
	})

	It("orders runs newest first and honours the limit", func() {
		Expect(store.SaveRun(ctx, run("old", t0), nil)).To(Succeed())
		Expect(store.SaveRun(ctx, run("new", t0.Add(time.Hour)), nil)).To(Succeed())
		Expect(store.SaveRun(ctx, run("mid", t0.Add(time.Minute)), nil)).To(Succeed())

		runs, err := store.ListRuns(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].ID).To(Equal("new"))
		Expect(runs[1].ID).To(Equal("mid"))

		latest, err := store.LatestRun(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest.ID).To(Equal("new"))
	})

	It("records failed chunk ids per run", func() {
		failures := []ledger.FailedChunk{
			{ChunkID: "a_chunk_3", DocumentID: "a", Stage: ledger.StageEmbed, Reason: "timeout"},
			{ChunkID: "b_chunk_0", DocumentID: "b", Stage: ledger.StageWrite, Reason: "unavailable"},
			{ChunkID: "a_chunk_4", DocumentID: "a", Stage: ledger.StageWrite, Reason: "unavailable"},
		}
		Expect(store.SaveRun(ctx, run("r1", t0), failures)).To(Succeed())
		Expect(store.SaveRun(ctx, run("r2", t0.Add(time.Hour)), nil)).To(Succeed())

		got, err := store.FailedChunks(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(3))
		for _, f := range got {
			Expect(f.RunID).To(Equal("r1"))
		}
		Expect(ledger.FailedDocuments(got)).To(ConsistOf("a", "b"))

		none, err := store.FailedChunks(ctx, "r2")
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})

	It("replaces a run saved twice", func() {
		Expect(store.SaveRun(ctx, run("r1", t0), []ledger.FailedChunk{{DocumentID: "a", Stage: ledger.StageChunk}})).To(Succeed())

		updated := run("r1", t0)
		updated.Written = 120
		Expect(store.SaveRun(ctx, updated, nil)).To(Succeed())

		runs, err := store.ListRuns(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Written).To(Equal(120))

		failures, err := store.FailedChunks(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(failures).To(BeEmpty())
	})
}
