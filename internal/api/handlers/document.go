package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/infofinder/internal/api"
	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/go-chi/chi/v5"
)

type IngestService interface {
	Ingest(ctx context.Context, chunks []*domain.Chunk) error
	IngestDocument(ctx context.Context, documentID, text string, metadata map[string]string) ([]*domain.Chunk, error)
	RemoveDocument(ctx context.Context, documentID string) error
}

type DocumentHandler struct {
	svc IngestService
}

func NewDocumentHandler(svc IngestService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type IngestChunkRequest struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	TokenCount int               `json:"token_count"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type IngestRequest struct {
	Chunks []IngestChunkRequest `json:"chunks"`
}

type IngestResponse struct {
	Ingested int `json:"ingested"`
}

type IngestDocumentRequest struct {
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type IngestDocumentResponse struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// Ingest accepts a batch of pre-embedded chunks. The batch is applied
// atomically: one invalid chunk rejects the whole request.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Chunks) == 0 {
		api.Error(w, http.StatusBadRequest, "chunks is required")
		return
	}

	chunks := make([]*domain.Chunk, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		chunks = append(chunks, &domain.Chunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			Embedding:  c.Embedding,
			Metadata:   c.Metadata,
		})
	}

	if err := h.svc.Ingest(r.Context(), chunks); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{Ingested: len(chunks)})
}

// IngestDocument chunks, embeds, and indexes a raw document.
func (h *DocumentHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	chunks, err := h.svc.IngestDocument(r.Context(), req.DocumentID, req.Text, req.Metadata)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}

	api.Success(w, http.StatusCreated, IngestDocumentResponse{
		DocumentID: req.DocumentID,
		ChunkIDs:   ids,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.RemoveDocument(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
