// Package config loads the engine configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ArchonAI/archon-engine/engine/chunker"
)

// Config is the full environment-driven configuration surface.
type Config struct {
	// Chunking
	ChunkSize          int
	ChunkOverlap       int
	MinChunkSize       int
	ChunkingStrategy   string
	PreserveFormatting bool
	RemoveHeaders      bool
	RemoveFooters      bool

	// Embedding
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingBatchSize int
	EmbeddingDimension int
	EmbeddingWorkers   int
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OllamaURL          string
	CustomEmbedURL     string

	// Vector store
	VectorStoreType  string
	VectorHost       string
	VectorPort       int
	VectorCollection string

	// Queue + persistence
	NATSURL     string
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	DataDir     string
	MetricsPort int

	// External-call budget per phase.
	CallTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults. A .env
// file is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ChunkSize:          envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       envInt("CHUNK_OVERLAP", 200),
		MinChunkSize:       envInt("MIN_CHUNK_SIZE", 50),
		ChunkingStrategy:   envStr("CHUNKING_STRATEGY", chunker.StrategyWords),
		PreserveFormatting: envBool("PRESERVE_FORMATTING", false),
		RemoveHeaders:      envBool("REMOVE_HEADERS", false),
		RemoveFooters:      envBool("REMOVE_FOOTERS", false),

		EmbeddingProvider:  envStr("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:     envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingBatchSize: envInt("EMBEDDING_BATCH_SIZE", 10),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 768),
		EmbeddingWorkers:   envInt("EMBEDDING_WORKERS", 4),
		OpenAIAPIKey:       envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      envStr("OPENAI_BASE_URL", ""),
		OllamaURL:          envStr("OLLAMA_URL", "http://localhost:11434"),
		CustomEmbedURL:     envStr("CUSTOM_EMBED_URL", ""),

		VectorStoreType:  envStr("VECTOR_STORE_TYPE", "qdrant"),
		VectorHost:       envStr("VECTOR_STORE_HOST", "localhost"),
		VectorPort:       envInt("VECTOR_STORE_PORT", 6334),
		VectorCollection: envStr("VECTOR_STORE_COLLECTION", "archon"),

		NATSURL:     envStr("NATS_URL", "nats://localhost:4222"),
		Neo4jURL:    envStr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:   envStr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envStr("NEO4J_PASS", ""),
		DataDir:     envStr("DATA_DIR", "/var/lib/archon/files"),
		MetricsPort: envInt("METRICS_PORT", 9091),

		CallTimeout: envDuration("CALL_TIMEOUT", 2*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on configuration that would be a programming error at
// pipeline time.
func (c *Config) Validate() error {
	if err := c.ChunkerConfig().Validate(); err != nil {
		return err
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("config: EMBEDDING_BATCH_SIZE must be > 0")
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("config: EMBEDDING_DIMENSION must be > 0")
	}
	if c.VectorStoreType != "qdrant" {
		return fmt.Errorf("config: unsupported VECTOR_STORE_TYPE %q", c.VectorStoreType)
	}
	return nil
}

// ChunkerConfig projects the chunking options.
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		MaxChunkSize:       c.ChunkSize,
		OverlapSize:        c.ChunkOverlap,
		MinChunkSize:       c.MinChunkSize,
		Strategy:           c.ChunkingStrategy,
		RemoveHeaders:      c.RemoveHeaders,
		RemoveFooters:      c.RemoveFooters,
		PreserveFormatting: c.PreserveFormatting,
	}
}

// VectorAddr returns the qdrant gRPC address.
func (c *Config) VectorAddr() string {
	return fmt.Sprintf("%s:%d", c.VectorHost, c.VectorPort)
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := envStr(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := envStr(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := envStr(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
