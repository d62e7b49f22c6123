package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/cloo-solutions/infofinder/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorSearcher struct {
	hits  []index.Hit
	err   error
	delay time.Duration
}

func (f *fakeVectorSearcher) Query(embedding []float32, k int) ([]index.Hit, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if len(f.hits) > k {
		return f.hits[:k], f.err
	}
	return f.hits, f.err
}

type fakeLexicalSearcher struct {
	hits  []index.Hit
	err   error
	delay time.Duration
}

func (f *fakeLexicalSearcher) Query(queryText string, k int) ([]index.Hit, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if len(f.hits) > k {
		return f.hits[:k], f.err
	}
	return f.hits, f.err
}

type mapReader map[string]*domain.Chunk

func (m mapReader) Get(id string) (*domain.Chunk, error) {
	chunk, ok := m[id]
	if !ok {
		return nil, domain.ErrChunkNotFound
	}
	return chunk, nil
}

type fakeEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.embedding, f.err
}

func testReader(ids ...string) mapReader {
	m := mapReader{}
	for _, id := range ids {
		m[id] = &domain.Chunk{ID: id, DocumentID: "doc", Text: "text-" + id, TokenCount: 1}
	}
	return m
}

func newTestService(t *testing.T, vector VectorSearcher, lexical LexicalSearcher, scorer RelevanceScorer, reader ChunkReader) *RetrievalService {
	t.Helper()
	svc, err := NewRetrievalService(reader, vector, lexical, nil, scorer, DefaultRetrievalConfig(), nil)
	require.NoError(t, err)
	return svc
}

func TestRetrieve_FusesAndReranks(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}, {ChunkID: "C"}}}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}, {ChunkID: "A"}}}
	scorer := &stubScorer{scores: map[string]float64{
		"text-A": 3.0,
		"text-B": 9.0,
		"text-C": 6.0,
	}}
	svc := newTestService(t, vector, lexical, scorer, testReader("A", "B", "C"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Empty(t, out.Degraded)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "B", out.Results[0].Chunk.ID)
	assert.Equal(t, "C", out.Results[1].Chunk.ID)
	assert.Equal(t, "A", out.Results[2].Chunk.ID)

	// Fusion evidence survives the rerank.
	assert.InDelta(t, 1.0/61+1.0/62, out.Results[2].FusionScore, 1e-12)
	assert.Equal(t, 1, out.Results[2].VectorRank)
	assert.Equal(t, 2, out.Results[2].LexicalRank)
	require.NotNil(t, out.Results[0].RerankScore)
	assert.Equal(t, 9.0, *out.Results[0].RerankScore)
}

func TestRetrieve_NilScorerBypassesRerank(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}, {ChunkID: "C"}}}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}, {ChunkID: "A"}}}
	svc := newTestService(t, vector, lexical, nil, testReader("A", "B", "C"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, []domain.DegradedSource{domain.DegradedReranker}, out.Degraded)

	// Fusion order is preserved untouched.
	require.Len(t, out.Results, 3)
	assert.Equal(t, "A", out.Results[0].Chunk.ID)
	assert.Equal(t, "B", out.Results[1].Chunk.ID)
	assert.Equal(t, "C", out.Results[2].Chunk.ID)
	assert.Nil(t, out.Results[0].RerankScore)
}

func TestRetrieve_ScorerErrorDegradesToFusionOrder(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}}}
	scorer := &stubScorer{err: domain.ErrSourceUnavailable}
	svc := newTestService(t, vector, lexical, scorer, testReader("A", "B"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Contains(t, out.Degraded, domain.DegradedReranker)
	require.Len(t, out.Results, 2)
	assert.Nil(t, out.Results[0].RerankScore)
}

func TestRetrieve_VectorFailureDegrades(t *testing.T) {
	vector := &fakeVectorSearcher{err: domain.ErrIndexEmpty}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}, {ChunkID: "A"}}}
	svc := newTestService(t, vector, lexical, nil, testReader("A", "B"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Contains(t, out.Degraded, domain.DegradedVector)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "B", out.Results[0].Chunk.ID)
	assert.Equal(t, "A", out.Results[1].Chunk.ID)
}

func TestRetrieve_BothSourcesFailIsTerminal(t *testing.T) {
	vector := &fakeVectorSearcher{err: domain.ErrIndexEmpty}
	lexical := &fakeLexicalSearcher{err: domain.ErrIndexEmpty}
	svc := newTestService(t, vector, lexical, nil, mapReader{})

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.ErrorIs(t, err, domain.ErrIndexEmpty)

	require.NotNil(t, out)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, domain.ErrCodeIndexEmpty, out.Reason)
	assert.Empty(t, out.Results)
	assert.ElementsMatch(t,
		[]domain.DegradedSource{domain.DegradedVector, domain.DegradedLexical},
		out.Degraded)
}

func TestRetrieve_ZeroMatchesIsNotDegraded(t *testing.T) {
	// An index answering with no hits is a valid empty answer, not a failure.
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}}
	lexical := &fakeLexicalSearcher{hits: nil}
	svc := newTestService(t, vector, lexical, nil, testReader("A"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, []domain.DegradedSource{domain.DegradedReranker}, out.Degraded)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "A", out.Results[0].Chunk.ID)
}

func TestRetrieve_CancellationReturnsNoResult(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}, delay: 200 * time.Millisecond}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}}, delay: 200 * time.Millisecond}
	svc := newTestService(t, vector, lexical, nil, testReader("A", "B"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Retrieve(ctx, RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestRetrieve_DeadlineDegradesSlowSource(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}}, delay: 300 * time.Millisecond}
	svc := newTestService(t, vector, lexical, nil, testReader("A", "B"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := svc.Retrieve(ctx, RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Contains(t, out.Degraded, domain.DegradedLexical)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "A", out.Results[0].Chunk.ID)
}

func TestRetrieve_TruncatesToTopKRerank(t *testing.T) {
	hits := []index.Hit{
		{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"},
		{ChunkID: "d"}, {ChunkID: "e"}, {ChunkID: "f"},
	}
	vector := &fakeVectorSearcher{hits: hits}
	lexical := &fakeLexicalSearcher{}
	svc := newTestService(t, vector, lexical, nil, testReader("a", "b", "c", "d", "e", "f"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:      "q",
		Embedding:  []float32{0.1},
		TopKRerank: 2,
	})
	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
}

func TestRetrieve_ClampsPerRequestOverride(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}}}
	lexical := &fakeLexicalSearcher{}
	svc := newTestService(t, vector, lexical, nil, testReader("a", "b", "c"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:         "q",
		Embedding:     []float32{0.1},
		TopKRetrieval: 2,
		TopKRerank:    50,
	})
	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
}

func TestRetrieve_RejectsOverrideWhenClampingDisabled(t *testing.T) {
	cfg := DefaultRetrievalConfig()
	cfg.ClampTopK = false
	svc, err := NewRetrievalService(mapReader{}, &fakeVectorSearcher{}, &fakeLexicalSearcher{}, nil, nil, cfg, nil)
	require.NoError(t, err)

	_, err = svc.Retrieve(context.Background(), RetrieveInput{
		Query:         "q",
		Embedding:     []float32{0.1},
		TopKRetrieval: 2,
		TopKRerank:    50,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.NewDomainError(domain.ErrCodeConfiguration, ""))
}

func TestRetrieve_EmbedsQueryWhenEmbeddingMissing(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}}
	lexical := &fakeLexicalSearcher{}
	embedder := &fakeEmbedder{embedding: []float32{0.5, 0.5}}
	svc, err := NewRetrievalService(testReader("A"), vector, lexical, embedder, nil, DefaultRetrievalConfig(), nil)
	require.NoError(t, err)

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q"})
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, StateDone, out.State)
	require.Len(t, out.Results, 1)
}

func TestRetrieve_NoEmbedderDegradesVector(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}}}
	lexical := &fakeLexicalSearcher{hits: []index.Hit{{ChunkID: "B"}}}
	svc := newTestService(t, vector, lexical, nil, testReader("A", "B"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q"})
	require.NoError(t, err)

	assert.Contains(t, out.Degraded, domain.DegradedVector)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "B", out.Results[0].Chunk.ID)
}

func TestRetrieve_DropsVanishedChunks(t *testing.T) {
	vector := &fakeVectorSearcher{hits: []index.Hit{{ChunkID: "A"}, {ChunkID: "gone"}}}
	lexical := &fakeLexicalSearcher{}
	svc := newTestService(t, vector, lexical, nil, testReader("A"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", Embedding: []float32{0.1}})
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	assert.Equal(t, "A", out.Results[0].Chunk.ID)
}

func TestNewRetrievalService_ValidatesConfig(t *testing.T) {
	cfg := DefaultRetrievalConfig()
	cfg.RRFK = 0

	_, err := NewRetrievalService(mapReader{}, &fakeVectorSearcher{}, &fakeLexicalSearcher{}, nil, nil, cfg, nil)
	require.Error(t, err)
}
