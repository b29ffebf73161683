package config

import "strings"

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384
	defaultEmbeddingBatchSize  = 32

	defaultVectorProvider    = "sqlite"
	defaultVectorCollection  = "physics-rag"
	defaultVectorBatchSize   = 100
	defaultVectorMaxInFlight = 4

	defaultTopK = 5

	defaultLLMProvider    = "ollama"
	defaultLLMTemperature = 0.1
	defaultLLMMaxTokens   = 1024

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultLedgerProvider = "sqlite"
	defaultEventsProvider = "none"
	defaultEventsTopic    = "physrag.documents"

	defaultRetryMaxAttempts  = 3
	defaultRetryInitialDelay = "500ms"
	defaultRetryMaxDelay     = "10s"
)

// Recognized provider names per section.
var (
	EmbeddingProviders   = []string{"ollama", "gemini"}
	VectorStoreProviders = []string{"sqlite", "chroma", "qdrant", "memory"}
	LLMProviders         = []string{"ollama", "openai", "anthropic"}
	LedgerProviders      = []string{"sqlite", "postgres", "memory"}
	EventProviders       = []string{"none", "kafka"}
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Provider targets
// are left empty so each provider falls back to its own default endpoint.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Chunking: ChunkingConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			BatchSize:  defaultEmbeddingBatchSize,
		},
		VectorStore: VectorStoreConfig{
			Provider:    defaultVectorProvider,
			Collection:  defaultVectorCollection,
			BatchSize:   defaultVectorBatchSize,
			MaxInFlight: defaultVectorMaxInFlight,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Temperature: defaultLLMTemperature,
			MaxTokens:   defaultLLMMaxTokens,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Ledger: LedgerConfig{
			Provider: defaultLedgerProvider,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Retry: RetryConfig{
			MaxAttempts:  defaultRetryMaxAttempts,
			InitialDelay: defaultRetryInitialDelay,
			MaxDelay:     defaultRetryMaxDelay,
		},
	}
}

// BrokerList splits the comma separated broker setting.
func (e EventsConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
