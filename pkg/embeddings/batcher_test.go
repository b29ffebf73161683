package embeddings_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/retry"
	testutils "github.com/papercomputeco/physrag/pkg/utils/test"
)

var _ = Describe("Batcher", func() {
	var (
		ctx    context.Context
		mock   *testutils.MockEmbedder
		policy retry.Policy
		texts  []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = testutils.NewMockEmbedder()
		mock.Embeddings["a"] = []float32{1, 0, 0}
		mock.Embeddings["b"] = []float32{0, 1, 0}
		mock.Embeddings["c"] = []float32{0, 0, 1}
		mock.Embeddings["d"] = []float32{1, 1, 0}
		mock.Embeddings["e"] = []float32{0, 1, 1}
		policy = retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
		texts = []string{"a", "b", "c", "d", "e"}
	})

	newBatcher := func(cfg embeddings.BatcherConfig) *embeddings.Batcher {
		cfg.Retry = policy
		return embeddings.NewBatcher(mock, cfg, logger.Nop())
	}

	It("groups texts into batches and keeps positions", func() {
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 2})

		result, err := b.EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())
		Expect(mock.BatchSizes).To(Equal([]int{2, 2, 1}))
		Expect(result.Vectors).To(Equal([][]float32{
			{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1},
		}))
	})

	It("produces the same vectors regardless of batch size", func() {
		one, err := newBatcher(embeddings.BatcherConfig{BatchSize: 1}).EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		all, err := newBatcher(embeddings.BatcherConfig{BatchSize: 32}).EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(one.Vectors).To(Equal(all.Vectors))
	})

	It("retries a failing batch and uses the successful attempt", func() {
		mock.BatchFailures = 2
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 5})

		result, err := b.EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())
		Expect(mock.BatchCalls).To(Equal(3))
		Expect(mock.EmbedCalls).To(Equal(0))
		Expect(result.Vectors[0]).To(Equal([]float32{1, 0, 0}))
	})

	It("splits an exhausted batch into single items", func() {
		mock.BatchFailures = 3
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 5})

		result, err := b.EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())
		Expect(mock.EmbedCalls).To(Equal(5))
		Expect(result.Vectors[4]).To(Equal([]float32{0, 1, 1}))
	})

	It("reports items that keep failing and excludes them", func() {
		mock.FailOn = "c"
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 5})

		result, err := b.EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(HaveLen(1))
		Expect(result.Failures[0].Index).To(Equal(2))
		Expect(result.Failures[0].Err).To(MatchError(embeddings.ErrEmbedding))
		Expect(result.Vectors[2]).To(BeNil())
		Expect(result.Vectors[3]).To(Equal([]float32{1, 1, 0}))
	})

	It("flags vectors with the wrong dimension", func() {
		mock.Embeddings["short"] = []float32{1}
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 4, Dimensions: 3})

		result, err := b.EmbedAll(ctx, []string{"a", "short"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(HaveLen(1))
		Expect(result.Failures[0].Index).To(Equal(1))
		Expect(result.Failures[0].Err).To(MatchError(embeddings.ErrDimensionMismatch))
	})

	It("fails EmbedBatch when any item fails", func() {
		mock.FailOn = "b"
		b := newBatcher(embeddings.BatcherConfig{})

		_, err := b.EmbedBatch(ctx, texts)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("rate limits without losing results", func() {
		b := newBatcher(embeddings.BatcherConfig{BatchSize: 1, RequestsPerSecond: 1000})

		result, err := b.EmbedAll(ctx, texts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Vectors).To(HaveLen(5))
		Expect(mock.BatchCalls).To(Equal(5))
	})

	It("stops on context cancellation", func() {
		mock.BatchFailures = 100
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newBatcher(embeddings.BatcherConfig{}).EmbedAll(cctx, texts)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("delegates model identity and single embeds", func() {
		b := newBatcher(embeddings.BatcherConfig{Dimensions: 3})
		Expect(b.Model()).To(Equal("mock-embed"))
		Expect(b.Dimensions()).To(Equal(3))

		v, err := b.Embed(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{1, 0, 0}))
	})
})
