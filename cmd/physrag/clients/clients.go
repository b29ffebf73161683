// Package clients builds the pipeline components used by the physrag
// commands from a resolved config.Config.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/pkg/answer"
	"github.com/papercomputeco/physrag/pkg/chunker"
	"github.com/papercomputeco/physrag/pkg/config"
	"github.com/papercomputeco/physrag/pkg/dotdir"
	"github.com/papercomputeco/physrag/pkg/embeddings"
	"github.com/papercomputeco/physrag/pkg/embeddings/embeddingutils"
	"github.com/papercomputeco/physrag/pkg/eventstream"
	"github.com/papercomputeco/physrag/pkg/eventstream/kafka"
	"github.com/papercomputeco/physrag/pkg/eventstream/nop"
	"github.com/papercomputeco/physrag/pkg/indexer"
	"github.com/papercomputeco/physrag/pkg/ledger"
	"github.com/papercomputeco/physrag/pkg/ledger/ledgerutils"
	"github.com/papercomputeco/physrag/pkg/llm"
	"github.com/papercomputeco/physrag/pkg/llm/llmutils"
	"github.com/papercomputeco/physrag/pkg/retrieval"
	"github.com/papercomputeco/physrag/pkg/retry"
	"github.com/papercomputeco/physrag/pkg/vector"
	"github.com/papercomputeco/physrag/pkg/vector/vectorutils"
)

// LLMTimeout bounds a single generation request.
const LLMTimeout = 2 * time.Minute

// LoadConfig resolves the configuration for cmd: defaults, config.toml,
// PHYSRAG_* environment variables and the registered flags in keys.
// A .env file in the working directory is loaded first so provider API keys
// can live there.
func LoadConfig(cmd *cobra.Command, keys []string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return config.FromViper(v), nil
}

// Stack holds the components built for a command. Close releases all of
// them; fields a command did not ask for are nil.
type Stack struct {
	Config    *config.Config
	Retry     retry.Policy
	Embedder  *embeddings.Batcher
	Driver    vector.Driver
	Planner   *retrieval.Planner
	Completer llm.Completer
	Service   *answer.Service
	Ledger    ledger.Store
	Publisher eventstream.Publisher

	configDir string
	logger    *slog.Logger
	closers   []func() error
}

// NewStack starts an empty stack for cfg.
func NewStack(cfg *config.Config, configDir string, logger *slog.Logger) (*Stack, error) {
	policy, err := cfg.Retry.Policy()
	if err != nil {
		return nil, err
	}
	return &Stack{
		Config:    cfg,
		Retry:     policy,
		configDir: configDir,
		logger:    logger,
	}, nil
}

// Close releases the stack's components in reverse build order.
func (s *Stack) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// WithRetrieval builds the embedder, vector driver and planner.
func (s *Stack) WithRetrieval(ctx context.Context) error {
	if err := s.buildEmbedder(ctx); err != nil {
		return err
	}
	if err := s.buildDriver(ctx); err != nil {
		return err
	}

	s.Planner = retrieval.NewPlanner(s.Embedder, s.Driver, retrieval.Config{
		DefaultTopK: int(s.Config.Retrieval.TopK),
		MinScore:    float32(s.Config.Retrieval.MinScore),
		Retry:       s.Retry,
	}, s.logger)
	return nil
}

// WithAnswering builds retrieval plus the completer and the answer service.
func (s *Stack) WithAnswering(ctx context.Context) error {
	if s.Planner == nil {
		if err := s.WithRetrieval(ctx); err != nil {
			return err
		}
	}

	completer, err := llmutils.NewCompleter(&llmutils.NewCompleterOpts{
		ProviderType: s.Config.LLM.Provider,
		TargetURL:    s.Config.LLM.Target,
		Model:        s.Config.LLM.Model,
		Timeout:      LLMTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating LLM completer: %w", err)
	}
	s.Completer = completer
	s.closers = append(s.closers, completer.Close)

	composer := answer.NewComposer(completer, answer.ComposerConfig{
		Temperature: s.Config.LLM.Temperature,
		MaxTokens:   int(s.Config.LLM.MaxTokens),
		Retry:       s.Retry,
	}, s.logger)
	s.Service = answer.NewService(s.Planner, composer, int(s.Config.Retrieval.TopK), s.logger)

	s.logger.Info("answering configured",
		"llm_provider", s.Config.LLM.Provider,
		"llm_model", completer.Model(),
	)
	return nil
}

// WithLedger opens the run ledger.
func (s *Stack) WithLedger(ctx context.Context) error {
	target := s.Config.Ledger.Target
	if s.Config.Ledger.Provider == "sqlite" && target == "" {
		var err error
		if target, err = dotdir.NewManager().DBPath(s.configDir, dotdir.LedgerDBName); err != nil {
			return err
		}
	}

	store, err := ledgerutils.NewStore(ctx, &ledgerutils.NewStoreOpts{
		ProviderType: s.Config.Ledger.Provider,
		Target:       target,
	})
	if err != nil {
		return fmt.Errorf("creating ledger: %w", err)
	}
	s.Ledger = store
	s.closers = append(s.closers, store.Close)

	s.logger.Info("using run ledger", "provider", s.Config.Ledger.Provider, "target", target)
	return nil
}

// WithPublisher builds the event publisher. Provider "none" publishes nothing.
func (s *Stack) WithPublisher() error {
	switch s.Config.Events.Provider {
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: s.Config.Events.BrokerList(),
			Topic:   s.Config.Events.Topic,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("creating kafka publisher: %w", err)
		}
		s.Publisher = p

	case "none", "":
		s.Publisher = nop.NewPublisher()

	default:
		return fmt.Errorf("unsupported events provider: %s", s.Config.Events.Provider)
	}

	s.closers = append(s.closers, s.Publisher.Close)
	return nil
}

// Chunker builds the chunker from the chunking settings.
func (s *Stack) Chunker() (*chunker.Chunker, error) {
	return chunker.New(
		chunker.WithChunkSize(int(s.Config.Chunking.ChunkSize)),
		chunker.WithOverlap(int(s.Config.Chunking.ChunkOverlap)),
		chunker.WithMinChars(int(s.Config.Chunking.MinChars)),
	)
}

// Writer builds the index writer over the stack's driver.
func (s *Stack) Writer() *indexer.Writer {
	return indexer.NewWriter(s.Driver, indexer.Config{
		BatchSize:      int(s.Config.VectorStore.BatchSize),
		MaxInFlight:    int(s.Config.VectorStore.MaxInFlight),
		Retry:          s.Retry,
		EmbeddingModel: s.Embedder.Model(),
	}, s.logger)
}

func (s *Stack) buildEmbedder(ctx context.Context) error {
	if s.Embedder != nil {
		return nil
	}

	e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: s.Config.Embedding.Provider,
		TargetURL:    s.Config.Embedding.Target,
		Model:        s.Config.Embedding.Model,
		Dimensions:   int(s.Config.Embedding.Dimensions),
		APIKey:       firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	s.Embedder = embeddings.NewBatcher(e, embeddings.BatcherConfig{
		BatchSize:         int(s.Config.Embedding.BatchSize),
		Dimensions:        int(s.Config.Embedding.Dimensions),
		RequestsPerSecond: s.Config.Embedding.RequestsPerSecond,
		Retry:             s.Retry,
	}, s.logger)
	s.closers = append(s.closers, s.Embedder.Close)

	s.logger.Info("using embedder",
		"provider", s.Config.Embedding.Provider,
		"model", s.Embedder.Model(),
		"dimensions", s.Config.Embedding.Dimensions,
	)
	return nil
}

func (s *Stack) buildDriver(ctx context.Context) error {
	if s.Driver != nil {
		return nil
	}

	target := s.Config.VectorStore.Target
	if s.Config.VectorStore.Provider == "sqlite" && target == "" {
		var err error
		if target, err = dotdir.NewManager().DBPath(s.configDir, dotdir.VectorDBName); err != nil {
			return err
		}
	}

	d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: s.Config.VectorStore.Provider,
		TargetURL:    target,
		Collection:   s.Config.VectorStore.Collection,
		Dimensions:   s.Config.Embedding.Dimensions,
		APIKey:       os.Getenv("QDRANT_API_KEY"),
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	s.Driver = d
	s.closers = append(s.closers, d.Close)

	s.logger.Info("using vector store",
		"provider", s.Config.VectorStore.Provider,
		"target", target,
		"collection", s.Config.VectorStore.Collection,
	)
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
