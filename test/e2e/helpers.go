//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/infofinder/internal/api/handlers"
	"github.com/cloo-solutions/infofinder/internal/index"
	"github.com/cloo-solutions/infofinder/internal/repository"
	"github.com/cloo-solutions/infofinder/internal/server"
	"github.com/cloo-solutions/infofinder/internal/service"
	"github.com/cloo-solutions/infofinder/internal/store"
	"github.com/cloo-solutions/infofinder/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Store      *store.MemoryStore
	Ingest     *service.IngestionService
	Server     *httptest.Server
	HTTPClient *http.Client
}

// stubScorer ranks passages by length so rerank ordering is deterministic
// without an external model.
type stubScorer struct{}

func (stubScorer) ScoreRelevance(ctx context.Context, query, text string) (float64, error) {
	return float64(len(text)), nil
}

// SetupE2EEnv creates a full test environment: a pgvector container, the
// in-memory store and indexes, services, and an HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	chunkStore := store.NewMemoryStore(0)
	vectorIdx := index.NewVectorIndex()
	lexicalIdx := index.NewLexicalIndex(index.BM25Params{})
	chunkStore.Attach(vectorIdx, lexicalIdx)

	repo := repository.NewChunkRepository(pool)
	cfg := service.DefaultRetrievalConfig()

	ingestSvc := service.NewIngestionService(chunkStore, repo, nil, nil, cfg)
	ingestSvc.AttachBuilders(vectorIdx, lexicalIdx)

	retrievalSvc, err := service.NewRetrievalService(chunkStore, vectorIdx, lexicalIdx, nil, stubScorer{}, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create retrieval service: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:   handlers.NewSearchHandler(retrievalSvc),
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
	})
	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Store:      chunkStore,
		Ingest:     ingestSvc,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// PostJSON sends a JSON POST and decodes the response envelope.
func (e *E2ETestEnv) PostJSON(path string, body interface{}) (int, map[string]interface{}) {
	e.T.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		e.T.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(e.T, resp.Body)
}

// Delete sends a DELETE and decodes the response envelope.
func (e *E2ETestEnv) Delete(path string) (int, map[string]interface{}) {
	e.T.Helper()

	req, err := http.NewRequest(http.MethodDelete, e.Server.URL+path, nil)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(e.T, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", string(raw), err)
	}
	return decoded
}

func chunkPayload(id, doc, text string, embedding []float32) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"document_id": doc,
		"text":        text,
		"token_count": 3,
		"embedding":   embedding,
	}
}

func resultIDs(data map[string]interface{}) []string {
	results, _ := data["results"].([]interface{})
	ids := make([]string, 0, len(results))
	for _, r := range results {
		m := r.(map[string]interface{})
		ids = append(ids, fmt.Sprint(m["id"]))
	}
	return ids
}
