package service

import (
	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/cloo-solutions/infofinder/internal/index"
)

const (
	// DefaultRRFK dampens the influence of low ranks in fusion.
	DefaultRRFK = 60
	// DefaultTopKRetrieval is the candidate count retained per source before fusion.
	DefaultTopKRetrieval = 20
	// DefaultTopKRerank is the final candidate count returned after reranking.
	DefaultTopKRerank = 5
	// DefaultChunkSize is the upper bound on chunk length in characters.
	DefaultChunkSize = 2500
	// DefaultChunkOverlap is the overlap between adjacent chunks in characters.
	DefaultChunkOverlap = 300
)

// RetrievalConfig is the immutable retrieval configuration, validated once
// at construction and passed into the orchestrator. There are no ambient
// defaults consulted at query time.
type RetrievalConfig struct {
	ChunkSize     int
	ChunkOverlap  int
	TopKRetrieval int
	TopKRerank    int
	RRFK          int
	BM25K1        float64
	BM25B         float64

	// ClampTopK clamps TopKRerank down to TopKRetrieval instead of
	// rejecting the configuration.
	ClampTopK bool
}

// DefaultRetrievalConfig returns the default configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		TopKRetrieval: DefaultTopKRetrieval,
		TopKRerank:    DefaultTopKRerank,
		RRFK:          DefaultRRFK,
		BM25K1:        index.DefaultBM25K1,
		BM25B:         index.DefaultBM25B,
		ClampTopK:     true,
	}
}

// Validate checks every option eagerly and applies the clamping policy.
// It returns the effective configuration; an invalid option is a
// ConfigurationError, never silently accepted.
func (c RetrievalConfig) Validate() (RetrievalConfig, error) {
	if c.TopKRetrieval < 1 {
		return c, domain.NewConfigurationError("top_k_retrieval must be >= 1, got %d", c.TopKRetrieval)
	}
	if c.TopKRerank < 1 {
		return c, domain.NewConfigurationError("top_k_rerank must be >= 1, got %d", c.TopKRerank)
	}
	if c.TopKRerank > c.TopKRetrieval {
		if !c.ClampTopK {
			return c, domain.NewConfigurationError(
				"top_k_rerank (%d) exceeds top_k_retrieval (%d) and clamping is disabled",
				c.TopKRerank, c.TopKRetrieval)
		}
		c.TopKRerank = c.TopKRetrieval
	}
	if c.RRFK <= 0 {
		return c, domain.NewConfigurationError("rrf_k must be > 0, got %d", c.RRFK)
	}
	if c.BM25K1 <= 0 {
		return c, domain.NewConfigurationError("bm25_k1 must be > 0, got %v", c.BM25K1)
	}
	if c.BM25B < 0 || c.BM25B > 1 {
		return c, domain.NewConfigurationError("bm25_b must be in [0, 1], got %v", c.BM25B)
	}
	if c.ChunkSize < 1 {
		return c, domain.NewConfigurationError("chunk_size must be >= 1, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return c, domain.NewConfigurationError("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	return c, nil
}
