package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, chunks []*domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockIngestService) IngestDocument(ctx context.Context, documentID, text string, metadata map[string]string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, documentID, text, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockIngestService) RemoveDocument(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func TestDocumentHandler_Ingest_Success(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Ingest", mock.Anything, mock.MatchedBy(func(chunks []*domain.Chunk) bool {
		return len(chunks) == 2 && chunks[0].ID == "c1"
	})).Return(nil)

	body := `{"chunks":[
		{"id":"c1","document_id":"d1","text":"first","token_count":1,"embedding":[0.1,0.2]},
		{"id":"c2","document_id":"d1","text":"second","token_count":1,"embedding":[0.3,0.4]}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["ingested"])
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Ingest_EmptyBatch(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte(`{"chunks":[]}`)))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "chunks is required")
}

func TestDocumentHandler_Ingest_DimensionMismatch(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Ingest", mock.Anything, mock.Anything).Return(
		domain.NewDomainErrorWithCause(domain.ErrCodeDimensionMismatch, "embedding has 3 dimensions, index expects 2", domain.ErrDimensionMismatch))

	body := `{"chunks":[{"id":"c1","document_id":"d1","text":"first","token_count":1,"embedding":[0.1,0.2,0.3]}]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeDimensionMismatch)
}

func TestDocumentHandler_IngestDocument_Success(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	chunks := []*domain.Chunk{
		{ID: "generated-1", DocumentID: "d1"},
		{ID: "generated-2", DocumentID: "d1"},
	}
	mockSvc.On("IngestDocument", mock.Anything, "d1", "a long document body", mock.Anything).Return(chunks, nil)

	body := `{"document_id":"d1","text":"a long document body","metadata":{"source":"upload"}}`
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.IngestDocument(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "d1", data["document_id"])
	ids := data["chunk_ids"].([]interface{})
	assert.Len(t, ids, 2)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_IngestDocument_MissingFields(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	for name, body := range map[string]string{
		"missing document_id": `{"text":"body"}`,
		"missing text":        `{"document_id":"d1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader([]byte(body)))
			w := httptest.NewRecorder()

			handler.IngestDocument(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("RemoveDocument", mock.Anything, "d1").Return(nil)

	r := chi.NewRouter()
	r.Delete("/documents/{id}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/documents/d1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Delete_NotFound(t *testing.T) {
	mockSvc := new(MockIngestService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("RemoveDocument", mock.Anything, "missing").Return(
		domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "document not found", domain.ErrDocumentNotFound))

	r := chi.NewRouter()
	r.Delete("/documents/{id}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/documents/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
