// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`

	// RateLimitPerMinute caps requests per client IP and route; 0 disables. Needs redis.url.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // gemini | openai | multi
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GenerationModel string        `yaml:"generation_model"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
}

type AnalysisConfig struct {
	MinInputLength int `yaml:"min_input_length"`
}

type RAGConfig struct {
	TopK             int    `yaml:"top_k"`
	RecencyWindow    int    `yaml:"recency_window"`
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	Collection       string `yaml:"collection"`
	AutoInitSessions *bool  `yaml:"auto_init_sessions"`
}

// AutoInit reports whether ask should create unknown sessions. Defaults to true.
func (c RAGConfig) AutoInit() bool {
	return c.AutoInitSessions == nil || *c.AutoInitSessions
}

type SessionsConfig struct {
	Backend string        `yaml:"backend"` // memory | redis
	LockTTL time.Duration `yaml:"lock_ttl"`

	// EncryptionKey (16/24/32 bytes, raw or base64) seals Redis session content at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type QdrantConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	Dimension int    `yaml:"dimension"`
}

type PostgresConfig struct {
	URL       string `yaml:"url"`
	Dimension int    `yaml:"dimension"`
}

type VectorStoreConfig struct {
	Backend  string         `yaml:"backend"` // memory | qdrant | pgvector
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type JobsConfig struct {
	Store     string        `yaml:"store"` // memory | postgres (uses vector_store.postgres.url)
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Retention time.Duration `yaml:"retention"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	AI          AIConfig          `yaml:"ai"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	RAG         RAGConfig         `yaml:"rag"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Redis       RedisConfig       `yaml:"redis"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Jobs        JobsConfig        `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. A .env next to the working directory is
// loaded first (if present) so secrets can stay out of the YAML.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, applies environment overrides and defaults, then validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Sessions.EncryptionKey, "SESSION_ENCRYPTION_KEY")
	override(&cfg.VectorStore.Postgres.URL, "DATABASE_URL")
	override(&cfg.VectorStore.Qdrant.APIKey, "QDRANT_API_KEY")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 2 * time.Minute
	}
	if cfg.HTTP.MaxUploadBytes <= 0 {
		cfg.HTTP.MaxUploadBytes = 20 << 20
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 60 * time.Second
	}
	if cfg.Analysis.MinInputLength <= 0 {
		cfg.Analysis.MinInputLength = 20
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.RecencyWindow <= 0 {
		cfg.RAG.RecencyWindow = 6
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap < 0 {
		cfg.RAG.ChunkOverlap = 0
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = "contracts"
	}
	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = "memory"
	}
	if cfg.Sessions.LockTTL <= 0 {
		cfg.Sessions.LockTTL = 2 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "memory"
	}
	if cfg.Jobs.Store == "" {
		cfg.Jobs.Store = "memory"
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.QueueSize <= 0 {
		cfg.Jobs.QueueSize = 64
	}
	if cfg.Jobs.Retention <= 0 {
		cfg.Jobs.Retention = time.Hour
	}
}

// Validate performs minimal validation; it does not dial anything.
func (c *Config) Validate() error {
	if c.AI.GenerationModel == "" {
		return errors.New("ai.generation_model is required")
	}
	if c.AI.EmbeddingModel == "" {
		return errors.New("ai.embedding_model is required")
	}
	switch c.AI.Provider {
	case "gemini", "openai", "multi", "noop":
	default:
		return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return errors.New("rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	if c.HTTP.RateLimitPerMinute > 0 && c.Redis.URL == "" {
		return errors.New("redis.url is required for http.rate_limit_per_minute")
	}
	switch c.Sessions.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for sessions.backend=redis")
		}
	default:
		return fmt.Errorf("sessions.backend %q is not supported", c.Sessions.Backend)
	}
	switch c.VectorStore.Backend {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			return errors.New("vector_store.qdrant.url is required")
		}
		if c.VectorStore.Qdrant.Dimension <= 0 {
			return errors.New("vector_store.qdrant.dimension is required")
		}
	case "pgvector":
		if c.VectorStore.Postgres.URL == "" {
			return errors.New("vector_store.postgres.url is required")
		}
		if c.VectorStore.Postgres.Dimension <= 0 {
			return errors.New("vector_store.postgres.dimension is required")
		}
	default:
		return fmt.Errorf("vector_store.backend %q is not supported", c.VectorStore.Backend)
	}
	switch c.Jobs.Store {
	case "memory":
	case "postgres":
		if c.VectorStore.Postgres.URL == "" {
			return errors.New("vector_store.postgres.url is required for jobs.store=postgres")
		}
	default:
		return fmt.Errorf("jobs.store %q is not supported", c.Jobs.Store)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 24 * time.Hour
	}
	return d
}
