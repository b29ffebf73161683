package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent physrag configuration stored as config.toml
// in the .physrag/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	LLM         LLMConfig         `toml:"llm"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Ledger      LedgerConfig      `toml:"ledger"`
	Events      EventsConfig      `toml:"events"`
	Ingest      IngestConfig      `toml:"ingest"`
	Retry       RetryConfig       `toml:"retry"`
}

// ChunkingConfig holds the word window used to split documents.
type ChunkingConfig struct {
	ChunkSize    uint `toml:"chunk_size,omitempty"`
	ChunkOverlap uint `toml:"chunk_overlap,omitempty"`

	// MinChars drops chunks shorter than this many characters. Zero keeps all.
	MinChars uint `toml:"min_chars,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	Model             string  `toml:"model,omitempty"`
	Dimensions        uint    `toml:"dimensions,omitempty"`
	BatchSize         uint    `toml:"batch_size,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Target      string `toml:"target,omitempty"`
	Collection  string `toml:"collection,omitempty"`
	BatchSize   uint   `toml:"batch_size,omitempty"`
	MaxInFlight uint   `toml:"max_in_flight,omitempty"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK     uint    `toml:"top_k,omitempty"`
	MinScore float64 `toml:"min_score,omitempty"`
}

// LLMConfig holds the answer generation model settings.
type LLMConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Target      string  `toml:"target,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. physrag ask, physrag search). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// LedgerConfig holds the run ledger backend.
type LedgerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EventsConfig holds the ingestion event stream settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// IngestConfig holds ingestion orchestrator settings.
type IngestConfig struct {
	// Workers is the number of documents processed concurrently.
	// Zero means twice the number of CPUs.
	Workers uint `toml:"workers,omitempty"`
}

// RetryConfig holds the backoff policy shared by all remote calls.
// Delays are Go duration strings such as "500ms".
type RetryConfig struct {
	MaxAttempts  uint   `toml:"max_attempts,omitempty"`
	InitialDelay string `toml:"initial_delay,omitempty"`
	MaxDelay     string `toml:"max_delay,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = f
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (available: %v)", name, v, allowed)
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"chunking.chunk_size":    uintKey("chunking.chunk_size", func(c *Config) *uint { return &c.Chunking.ChunkSize }),
	"chunking.chunk_overlap": uintKey("chunking.chunk_overlap", func(c *Config) *uint { return &c.Chunking.ChunkOverlap }),
	"chunking.min_chars":     uintKey("chunking.min_chars", func(c *Config) *uint { return &c.Chunking.MinChars }),

	"embedding.provider": oneOfKey("embedding.provider", EmbeddingProviders, func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint {
		return &c.Embedding.Dimensions
	}),
	"embedding.batch_size": uintKey("embedding.batch_size", func(c *Config) *uint { return &c.Embedding.BatchSize }),
	"embedding.requests_per_second": floatKey("embedding.requests_per_second", func(c *Config) *float64 {
		return &c.Embedding.RequestsPerSecond
	}),

	"vector_store.provider": oneOfKey("vector_store.provider", VectorStoreProviders, func(c *Config) *string {
		return &c.VectorStore.Provider
	}),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.batch_size": uintKey("vector_store.batch_size", func(c *Config) *uint {
		return &c.VectorStore.BatchSize
	}),
	"vector_store.max_in_flight": uintKey("vector_store.max_in_flight", func(c *Config) *uint {
		return &c.VectorStore.MaxInFlight
	}),

	"retrieval.top_k":     uintKey("retrieval.top_k", func(c *Config) *uint { return &c.Retrieval.TopK }),
	"retrieval.min_score": floatKey("retrieval.min_score", func(c *Config) *float64 { return &c.Retrieval.MinScore }),

	"llm.provider":    oneOfKey("llm.provider", LLMProviders, func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":      stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":       stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.temperature": floatKey("llm.temperature", func(c *Config) *float64 { return &c.LLM.Temperature }),
	"llm.max_tokens":  uintKey("llm.max_tokens", func(c *Config) *uint { return &c.LLM.MaxTokens }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"ledger.provider": oneOfKey("ledger.provider", LedgerProviders, func(c *Config) *string { return &c.Ledger.Provider }),
	"ledger.target":   stringKey(func(c *Config) *string { return &c.Ledger.Target }),

	"events.provider": oneOfKey("events.provider", EventProviders, func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"ingest.workers": uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),

	"retry.max_attempts":  uintKey("retry.max_attempts", func(c *Config) *uint { return &c.Retry.MaxAttempts }),
	"retry.initial_delay": durationKey("retry.initial_delay", func(c *Config) *string { return &c.Retry.InitialDelay }),
	"retry.max_delay":     durationKey("retry.max_delay", func(c *Config) *string { return &c.Retry.MaxDelay }),
}
