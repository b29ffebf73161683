package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/physrag/pkg/dotdir"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "PHYSRAG"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PHYSRAG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PHYSRAG_API_LISTEN, PHYSRAG_LLM_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PHYSRAG_VECTOR_STORE_TARGET, PHYSRAG_RETRY_MAX_DELAY, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper decodes the resolved settings into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Chunking: ChunkingConfig{
			ChunkSize:    v.GetUint("chunking.chunk_size"),
			ChunkOverlap: v.GetUint("chunking.chunk_overlap"),
			MinChars:     v.GetUint("chunking.min_chars"),
		},
		Embedding: EmbeddingConfig{
			Provider:          v.GetString("embedding.provider"),
			Target:            v.GetString("embedding.target"),
			Model:             v.GetString("embedding.model"),
			Dimensions:        v.GetUint("embedding.dimensions"),
			BatchSize:         v.GetUint("embedding.batch_size"),
			RequestsPerSecond: v.GetFloat64("embedding.requests_per_second"),
		},
		VectorStore: VectorStoreConfig{
			Provider:    v.GetString("vector_store.provider"),
			Target:      v.GetString("vector_store.target"),
			Collection:  v.GetString("vector_store.collection"),
			BatchSize:   v.GetUint("vector_store.batch_size"),
			MaxInFlight: v.GetUint("vector_store.max_in_flight"),
		},
		Retrieval: RetrievalConfig{
			TopK:     v.GetUint("retrieval.top_k"),
			MinScore: v.GetFloat64("retrieval.min_score"),
		},
		LLM: LLMConfig{
			Provider:    v.GetString("llm.provider"),
			Target:      v.GetString("llm.target"),
			Model:       v.GetString("llm.model"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetUint("llm.max_tokens"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Ledger: LedgerConfig{
			Provider: v.GetString("ledger.provider"),
			Target:   v.GetString("ledger.target"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Ingest: IngestConfig{
			Workers: v.GetUint("ingest.workers"),
		},
		Retry: RetryConfig{
			MaxAttempts:  v.GetUint("retry.max_attempts"),
			InitialDelay: v.GetString("retry.initial_delay"),
			MaxDelay:     v.GetString("retry.max_delay"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Chunking
	v.SetDefault("chunking.chunk_size", d.Chunking.ChunkSize)
	v.SetDefault("chunking.chunk_overlap", d.Chunking.ChunkOverlap)
	v.SetDefault("chunking.min_chars", d.Chunking.MinChars)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.requests_per_second", d.Embedding.RequestsPerSecond)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.batch_size", d.VectorStore.BatchSize)
	v.SetDefault("vector_store.max_in_flight", d.VectorStore.MaxInFlight)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.min_score", d.Retrieval.MinScore)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	// API and client
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Ledger
	v.SetDefault("ledger.provider", d.Ledger.Provider)
	v.SetDefault("ledger.target", d.Ledger.Target)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Ingest
	v.SetDefault("ingest.workers", d.Ingest.Workers)

	// Retry
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
}
