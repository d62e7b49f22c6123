package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/infofinder/internal/service"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// DatabaseURL enables the durable chunk repository; without it the
	// corpus is memory-only.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	SentryDSN    string `envconfig:"SENTRY_DSN"`

	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	ChunkSize     int     `envconfig:"CHUNK_SIZE" default:"2500"`
	ChunkOverlap  int     `envconfig:"CHUNK_OVERLAP" default:"300"`
	TopKRetrieval int     `envconfig:"TOP_K_RETRIEVAL" default:"20"`
	TopKRerank    int     `envconfig:"TOP_K_RERANK" default:"5"`
	RRFK          int     `envconfig:"RRF_K" default:"60"`
	BM25K1        float64 `envconfig:"BM25_K1" default:"1.5"`
	BM25B         float64 `envconfig:"BM25_B" default:"0.75"`
	ClampTopK     bool    `envconfig:"CLAMP_TOP_K" default:"true"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INFOFINDER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// Retrieval maps the environment options onto the retrieval configuration.
// Validation happens where the configuration is consumed, at service
// construction.
func (c *Config) Retrieval() service.RetrievalConfig {
	return service.RetrievalConfig{
		ChunkSize:     c.ChunkSize,
		ChunkOverlap:  c.ChunkOverlap,
		TopKRetrieval: c.TopKRetrieval,
		TopKRerank:    c.TopKRerank,
		RRFK:          c.RRFK,
		BM25K1:        c.BM25K1,
		BM25B:         c.BM25B,
		ClampTopK:     c.ClampTopK,
	}
}
