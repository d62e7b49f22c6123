package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/cloo-solutions/infofinder/internal/metrics"
	"github.com/cloo-solutions/infofinder/internal/store"
	"github.com/cloo-solutions/infofinder/internal/telemetry"
	"github.com/google/uuid"
)

// ChunkPersister is the optional durable backing for ingested chunks.
// Persistence of a batch is transactional on the persister side.
type ChunkPersister interface {
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	ListAll(ctx context.Context) ([]*domain.Chunk, error)
	ListTombstones(ctx context.Context) ([]string, error)
}

// IndexBuilder rebuilds an index from a full chunk snapshot.
type IndexBuilder interface {
	Build(chunks []*domain.Chunk)
}

// IngestionService owns all index mutation. Mutation is single-writer: a
// batch commit or removal excludes concurrent mutations, while each index
// handles its own read exclusion.
type IngestionService struct {
	mu       sync.Mutex
	store    *store.MemoryStore
	repo     ChunkPersister
	embedder Embedder
	counter  TokenCounter
	cfg      RetrievalConfig
	builders []IndexBuilder
	metrics  *metrics.RetrievalMetrics
}

// NewIngestionService creates an IngestionService. repo and embedder may be
// nil: without a repo the corpus is memory-only, without an embedder
// IngestDocument is unavailable.
func NewIngestionService(
	chunkStore *store.MemoryStore,
	repo ChunkPersister,
	embedder Embedder,
	counter TokenCounter,
	cfg RetrievalConfig,
) *IngestionService {
	if counter == nil {
		counter = WordCounter{}
	}
	return &IngestionService{
		store:    chunkStore,
		repo:     repo,
		embedder: embedder,
		counter:  counter,
		cfg:      cfg,
	}
}

// Ingest commits a batch of pre-chunked, pre-embedded chunks. The batch is
// all-or-nothing: if any chunk fails validation, no chunk in the batch is
// committed to the store, the persister, or either index.
func (s *IngestionService) Ingest(ctx context.Context, chunks []*domain.Chunk) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ValidateBatch(chunks); err != nil {
		span.SetError(err)
		return err
	}
	if s.repo != nil {
		if err := s.repo.SaveBatch(ctx, chunks); err != nil {
			err = domain.NewPartialFailureError("persisting chunk batch failed", err)
			span.SetError(err)
			return err
		}
	}
	if err := s.store.PutBatch(chunks); err != nil {
		span.SetError(err)
		return err
	}
	if s.metrics != nil {
		s.metrics.AddIngestedChunks(len(chunks))
	}
	return nil
}

// WithMetrics attaches ingestion counters.
func (s *IngestionService) WithMetrics(m *metrics.RetrievalMetrics) *IngestionService {
	s.metrics = m
	return s
}

// IngestDocument chunks raw document text, embeds each chunk, and ingests
// the result as one batch.
func (s *IngestionService) IngestDocument(ctx context.Context, documentID, text string, metadata map[string]string) ([]*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest_document",
	})
	defer span.End()

	if documentID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "document ID is required", domain.ErrMissingRequiredField)
	}
	if s.embedder == nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSourceUnavailable, "no embedder configured", domain.ErrSourceUnavailable)
	}

	pieces := chunkText(text, ChunkOptions{MaxChars: s.cfg.ChunkSize, Overlap: s.cfg.ChunkOverlap})
	if len(pieces) == 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "document text is empty", domain.ErrMissingRequiredField)
	}

	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.GenerateEmbedding(ctx, piece)
		if err != nil {
			return nil, domain.NewPartialFailureError(fmt.Sprintf("embedding chunk %d failed", i), err)
		}
		tokens, err := s.counter.CountTokens(piece)
		if err != nil || tokens < 1 {
			tokens = 1
		}
		chunks = append(chunks, &domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Text:       piece,
			TokenCount: tokens,
			Embedding:  embedding,
			Metadata:   metadata,
		})
	}

	if err := s.Ingest(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// RemoveDocument removes every chunk of a document. The removal is visible
// in both indexes before this returns.
func (s *IngestionService) RemoveDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RemoveDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "remove_document",
	})
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.RemoveByDocument(documentID); err != nil {
		span.SetError(err)
		return err
	}
	if s.repo != nil {
		if err := s.repo.DeleteByDocument(ctx, documentID); err != nil {
			span.SetError(err)
			return err
		}
	}
	return nil
}

// AttachBuilders registers indexes for full rebuilds via RefreshIndexes.
func (s *IngestionService) AttachBuilders(builders ...IndexBuilder) {
	s.builders = append(s.builders, builders...)
}

// RefreshIndexes rebuilds every attached index from the current store
// snapshot. Runs under the mutation lock, so it excludes concurrent writes.
func (s *IngestionService) RefreshIndexes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.store.All()
	for _, b := range s.builders {
		b.Build(chunks)
	}
	return nil
}

// LoadFromPersister replays persisted chunks and retired chunk ids into the
// store and indexes, used on startup when a durable backing is configured.
// Seeding the tombstones first keeps ids removed before a restart retired.
func (s *IngestionService) LoadFromPersister(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	tombstones, err := s.repo.ListTombstones(ctx)
	if err != nil {
		return 0, err
	}
	chunks, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SeedTombstones(tombstones)
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := s.store.PutBatch(chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
