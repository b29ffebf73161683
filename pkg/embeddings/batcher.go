package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/physrag/pkg/retry"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 32

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// BatchSize is the number of texts per remote call. Defaults to DefaultBatchSize.
	BatchSize int

	// Dimensions is the expected vector length. Zero skips the check.
	Dimensions int

	// RequestsPerSecond caps remote calls. Zero means unlimited.
	RequestsPerSecond float64

	// Retry is applied to every remote call.
	Retry retry.Policy
}

// ItemFailure is a text that could not be embedded after all retries.
type ItemFailure struct {
	// Index is the position of the text in the input slice.
	Index int
	Err   error
}

// BatchResult is the outcome of EmbedAll. Vectors is aligned with the input;
// entries for failed items are nil.
type BatchResult struct {
	Vectors  [][]float32
	Failures []ItemFailure
}

// Batcher wraps an Embedder with batching, rate limiting, retry and
// split-on-failure. It is itself an Embedder.
type Batcher struct {
	embedder Embedder
	cfg      BatcherConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewBatcher wraps embedder.
func NewBatcher(embedder Embedder, cfg BatcherConfig, logger *slog.Logger) *Batcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	b := &Batcher{
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	b.cfg.Retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		b.logger.Warn("embedding request failed, retrying",
			"model", embedder.Model(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	return b
}

// EmbedAll embeds texts in batches. A batch that keeps failing is split into
// single-item calls; items that still fail are reported in Failures and left
// nil in Vectors. Only cancellation of ctx is returned as an error.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) (*BatchResult, error) {
	result := &BatchResult{Vectors: make([][]float32, len(texts))}

	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		vectors, err := b.callBatch(ctx, batch)
		if err == nil {
			for i, v := range vectors {
				if derr := b.checkDimensions(v); derr != nil {
					result.Failures = append(result.Failures, ItemFailure{Index: start + i, Err: derr})
					continue
				}
				result.Vectors[start+i] = v
			}
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		b.logger.Warn("embedding batch failed, falling back to single items",
			"model", b.embedder.Model(),
			"batch_start", start,
			"batch_size", len(batch),
			"error", err,
		)

		for i, text := range batch {
			v, err := b.callOne(ctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				result.Failures = append(result.Failures, ItemFailure{Index: start + i, Err: err})
				continue
			}
			result.Vectors[start+i] = v
		}
	}

	return result, nil
}

func (b *Batcher) callBatch(ctx context.Context, batch []string) ([][]float32, error) {
	return retry.Value(ctx, b.cfg.Retry, func(ctx context.Context) ([][]float32, error) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		vectors, err := b.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbedding, len(batch), len(vectors))
		}
		return vectors, nil
	})
}

func (b *Batcher) callOne(ctx context.Context, text string) ([]float32, error) {
	v, err := retry.Value(ctx, b.cfg.Retry, func(ctx context.Context) ([]float32, error) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		return b.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if err := b.checkDimensions(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *Batcher) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

func (b *Batcher) checkDimensions(v []float32) error {
	if b.cfg.Dimensions > 0 && len(v) != b.cfg.Dimensions {
		return fmt.Errorf("%w: %w: expected %d, got %d", ErrEmbedding, ErrDimensionMismatch, b.cfg.Dimensions, len(v))
	}
	return nil
}

// Embed embeds a single text with rate limiting, retry and dimension checks.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.callOne(ctx, text)
}

// EmbedBatch embeds texts and fails if any item could not be embedded.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.EmbedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(result.Failures) > 0 {
		f := result.Failures[0]
		return nil, fmt.Errorf("%d of %d texts failed, first at %d: %w", len(result.Failures), len(texts), f.Index, f.Err)
	}
	return result.Vectors, nil
}

// Model returns the wrapped embedder's model.
func (b *Batcher) Model() string {
	return b.embedder.Model()
}

// Dimensions returns the configured vector length, zero when unchecked.
func (b *Batcher) Dimensions() int {
	return b.cfg.Dimensions
}

// Close closes the wrapped embedder.
func (b *Batcher) Close() error {
	return b.embedder.Close()
}

var _ Embedder = (*Batcher)(nil)
