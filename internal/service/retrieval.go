package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/cloo-solutions/infofinder/internal/index"
	"github.com/cloo-solutions/infofinder/internal/metrics"
	"github.com/cloo-solutions/infofinder/internal/telemetry"
)

// RequestState tracks a retrieval request through its lifecycle. Terminal
// states are StateDone and StateFailed.
type RequestState string

const (
	StateIdle       RequestState = "idle"
	StateRetrieving RequestState = "retrieving"
	StateFusing     RequestState = "fusing"
	StateReranking  RequestState = "reranking"
	StateDone       RequestState = "done"
	StateFailed     RequestState = "failed"
)

// VectorSearcher is the dense retrieval signal.
type VectorSearcher interface {
	Query(embedding []float32, k int) ([]index.Hit, error)
}

// LexicalSearcher is the sparse retrieval signal.
type LexicalSearcher interface {
	Query(queryText string, k int) ([]index.Hit, error)
}

// ChunkReader resolves chunk ids back to stored chunks.
type ChunkReader interface {
	Get(id string) (*domain.Chunk, error)
}

// Embedder generates an embedding for query text when the caller did not
// supply one.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrieveInput is one retrieval request. A zero TopKRetrieval or TopKRerank
// falls back to the configured default. Embedding may be nil when an
// Embedder is configured.
type RetrieveInput struct {
	Query         string
	Embedding     []float32
	TopKRetrieval int
	TopKRerank    int
}

// RetrieveOutput is the ordered, evidence-bearing retrieval response.
// Degraded lists the sources that did not contribute; Reason carries the
// error code when State is StateFailed.
type RetrieveOutput struct {
	Results  []*domain.RetrievedChunk
	Degraded []domain.DegradedSource
	State    RequestState
	Reason   string
}

// RetrievalService orchestrates one retrieval cycle: concurrent vector and
// lexical queries, RRF fusion, pairwise reranking, truncation. Per-source
// failures degrade the result instead of aborting; only the fully-empty
// case and configuration errors surface to the caller.
type RetrievalService struct {
	store    ChunkReader
	vector   VectorSearcher
	lexical  LexicalSearcher
	embedder Embedder
	scorer   RelevanceScorer
	cfg      RetrievalConfig
	metrics  *metrics.RetrievalMetrics
}

// NewRetrievalService creates a RetrievalService. embedder and scorer may be
// nil; the corresponding signal then degrades. The configuration is
// validated eagerly.
func NewRetrievalService(
	store ChunkReader,
	vector VectorSearcher,
	lexical LexicalSearcher,
	embedder Embedder,
	scorer RelevanceScorer,
	cfg RetrievalConfig,
	m *metrics.RetrievalMetrics,
) (*RetrievalService, error) {
	validated, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	return &RetrievalService{
		store:    store,
		vector:   vector,
		lexical:  lexical,
		embedder: embedder,
		scorer:   scorer,
		cfg:      validated,
		metrics:  m,
	}, nil
}

// Config returns the effective configuration after validation and clamping.
func (s *RetrievalService) Config() RetrievalConfig {
	return s.cfg
}

type sourceResult struct {
	hits []index.Hit
	err  error
}

// Retrieve runs one request through the state machine. A cancelled context
// returns no result; an expired deadline degrades to whatever stage already
// completed.
func (s *RetrievalService) Retrieve(ctx context.Context, in RetrieveInput) (*RetrieveOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	topKRetrieval, topKRerank, err := s.resolveLimits(in)
	if err != nil {
		return nil, err
	}

	degraded := make(map[domain.DegradedSource]struct{})

	// Retrieving: both signals run concurrently with no shared state.
	start := time.Now()
	vectorRes, lexicalRes, err := s.retrieveSources(ctx, in, topKRetrieval)
	if err != nil {
		return nil, err
	}
	s.observeStage("retrieve", start)

	if vectorRes.err != nil {
		degraded[domain.DegradedVector] = struct{}{}
	}
	if lexicalRes.err != nil {
		degraded[domain.DegradedLexical] = struct{}{}
	}

	if vectorRes.err != nil && lexicalRes.err != nil {
		// No candidates at all: the one terminal failure. The caller gets
		// an explicit empty result with a reason code, never a bare list.
		out := &RetrieveOutput{
			Results:  []*domain.RetrievedChunk{},
			Degraded: degradedSet(degraded),
			State:    StateFailed,
			Reason:   domain.ErrCodeIndexEmpty,
		}
		s.countRequest(string(StateFailed), degraded)
		span.SetError(domain.ErrIndexEmpty)
		return out, domain.ErrIndexEmpty
	}

	// Fusing: starts only after both retrieval tasks finished or degraded.
	start = time.Now()
	fused := fuseRRF(vectorRes.hits, lexicalRes.hits, s.cfg.RRFK, topKRetrieval)
	s.observeStage("fuse", start)

	entries, texts := s.resolveChunks(fused)

	// Reranking: all scores are collected before any reorder is observable.
	start = time.Now()
	final, rerankErr := s.rerankStage(ctx, in.Query, entries, texts)
	if rerankErr != nil {
		if errors.Is(rerankErr, context.Canceled) {
			return nil, rerankErr
		}
		degraded[domain.DegradedReranker] = struct{}{}
		final = entries
	}
	s.observeStage("rerank", start)

	if len(final) > topKRerank {
		final = final[:topKRerank]
	}

	out := &RetrieveOutput{
		Results:  s.buildResults(final),
		Degraded: degradedSet(degraded),
		State:    StateDone,
	}
	s.countRequest(string(StateDone), degraded)
	if s.metrics != nil {
		s.metrics.ObserveResultCount(len(out.Results))
	}
	return out, nil
}

func (s *RetrievalService) resolveLimits(in RetrieveInput) (int, int, error) {
	topKRetrieval := in.TopKRetrieval
	if topKRetrieval == 0 {
		topKRetrieval = s.cfg.TopKRetrieval
	}
	topKRerank := in.TopKRerank
	if topKRerank == 0 {
		topKRerank = s.cfg.TopKRerank
	}
	if topKRetrieval < 1 {
		return 0, 0, domain.NewConfigurationError("top_k_retrieval must be >= 1, got %d", topKRetrieval)
	}
	if topKRerank < 1 {
		return 0, 0, domain.NewConfigurationError("top_k_rerank must be >= 1, got %d", topKRerank)
	}
	if topKRerank > topKRetrieval {
		if !s.cfg.ClampTopK {
			return 0, 0, domain.NewConfigurationError(
				"top_k_rerank (%d) exceeds top_k_retrieval (%d)", topKRerank, topKRetrieval)
		}
		topKRerank = topKRetrieval
	}
	return topKRetrieval, topKRerank, nil
}

// retrieveSources runs the vector and lexical queries in parallel and waits
// for both. Cancellation aborts the request; a deadline marks outstanding
// sources unavailable and returns whatever completed.
func (s *RetrievalService) retrieveSources(ctx context.Context, in RetrieveInput, k int) (sourceResult, sourceResult, error) {
	vectorCh := make(chan sourceResult, 1)
	lexicalCh := make(chan sourceResult, 1)

	go func() {
		embedding := in.Embedding
		if len(embedding) == 0 {
			if s.embedder == nil {
				vectorCh <- sourceResult{err: domain.NewDomainErrorWithCause(
					domain.ErrCodeSourceUnavailable, "no query embedding and no embedder configured", domain.ErrSourceUnavailable)}
				return
			}
			var err error
			embedding, err = s.embedder.GenerateEmbedding(ctx, in.Query)
			if err != nil {
				vectorCh <- sourceResult{err: domain.NewDomainErrorWithCause(
					domain.ErrCodeSourceUnavailable, "query embedding failed", err)}
				return
			}
		}
		hits, err := s.vector.Query(embedding, k)
		vectorCh <- sourceResult{hits: hits, err: err}
	}()

	go func() {
		hits, err := s.lexical.Query(in.Query, k)
		lexicalCh <- sourceResult{hits: hits, err: err}
	}()

	var vectorRes, lexicalRes sourceResult
	vectorDone, lexicalDone := false, false
	for !vectorDone || !lexicalDone {
		select {
		case vectorRes = <-vectorCh:
			vectorDone = true
		case lexicalRes = <-lexicalCh:
			lexicalDone = true
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return sourceResult{}, sourceResult{}, ctx.Err()
			}
			if !vectorDone {
				vectorRes = sourceResult{err: domain.ErrSourceUnavailable}
				vectorDone = true
			}
			if !lexicalDone {
				lexicalRes = sourceResult{err: domain.ErrSourceUnavailable}
				lexicalDone = true
			}
		}
	}
	return vectorRes, lexicalRes, nil
}

// resolveChunks drops fused entries whose chunk vanished between retrieval
// and resolution and returns the surviving entries with their texts.
func (s *RetrievalService) resolveChunks(fused []domain.RankedEntry) ([]domain.RankedEntry, []string) {
	entries := make([]domain.RankedEntry, 0, len(fused))
	texts := make([]string, 0, len(fused))
	for _, e := range fused {
		chunk, err := s.store.Get(e.ChunkID)
		if err != nil {
			continue
		}
		entries = append(entries, e)
		texts = append(texts, chunk.Text)
	}
	return entries, texts
}

func (s *RetrievalService) rerankStage(ctx context.Context, query string, entries []domain.RankedEntry, texts []string) ([]domain.RankedEntry, error) {
	if s.scorer == nil {
		return nil, domain.ErrSourceUnavailable
	}
	return rerank(ctx, s.scorer, query, entries, texts)
}

func (s *RetrievalService) buildResults(entries []domain.RankedEntry) []*domain.RetrievedChunk {
	results := make([]*domain.RetrievedChunk, 0, len(entries))
	for _, e := range entries {
		chunk, err := s.store.Get(e.ChunkID)
		if err != nil {
			continue
		}
		results = append(results, &domain.RetrievedChunk{
			Chunk:       chunk,
			FusionScore: e.FusionScore,
			RerankScore: e.RerankScore,
			VectorRank:  e.VectorRank,
			LexicalRank: e.LexicalRank,
		})
	}
	return results
}

func (s *RetrievalService) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStageDuration(stage, time.Since(start))
	}
}

func (s *RetrievalService) countRequest(outcome string, degraded map[domain.DegradedSource]struct{}) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncRequests(outcome)
	for source := range degraded {
		s.metrics.IncDegraded(string(source))
	}
}

func degradedSet(set map[domain.DegradedSource]struct{}) []domain.DegradedSource {
	out := make([]domain.DegradedSource, 0, len(set))
	for source := range set {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
