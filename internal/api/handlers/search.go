package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/infofinder/internal/api"
	"github.com/cloo-solutions/infofinder/internal/service"
)

type SearchService interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) (*service.RetrieveOutput, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query         string    `json:"query"`
	Embedding     []float32 `json:"embedding,omitempty"`
	TopKRetrieval int       `json:"top_k_retrieval,omitempty"`
	TopKRerank    int       `json:"top_k_rerank,omitempty"`
}

type SearchResultChunk struct {
	ID          string            `json:"id"`
	DocumentID  string            `json:"document_id"`
	Text        string            `json:"text"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	FusionScore float64           `json:"fusion_score"`
	RerankScore *float64          `json:"rerank_score,omitempty"`
	VectorRank  int               `json:"vector_rank,omitempty"`
	LexicalRank int               `json:"lexical_rank,omitempty"`
}

type SearchResponse struct {
	Results  []SearchResultChunk `json:"results"`
	State    string              `json:"state"`
	Degraded []string            `json:"degraded,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

func searchToResponse(out *service.RetrieveOutput) *SearchResponse {
	results := make([]SearchResultChunk, 0, len(out.Results))
	for _, rc := range out.Results {
		results = append(results, SearchResultChunk{
			ID:          rc.Chunk.ID,
			DocumentID:  rc.Chunk.DocumentID,
			Text:        rc.Chunk.Text,
			Metadata:    rc.Chunk.Metadata,
			FusionScore: rc.FusionScore,
			RerankScore: rc.RerankScore,
			VectorRank:  rc.VectorRank,
			LexicalRank: rc.LexicalRank,
		})
	}

	degraded := make([]string, 0, len(out.Degraded))
	for _, d := range out.Degraded {
		degraded = append(degraded, string(d))
	}

	return &SearchResponse{
		Results:  results,
		State:    string(out.State),
		Degraded: degraded,
		Reason:   out.Reason,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopKRetrieval < 0 || req.TopKRerank < 0 {
		api.Error(w, http.StatusBadRequest, "top_k overrides must be positive")
		return
	}

	input := service.RetrieveInput{
		Query:         req.Query,
		Embedding:     req.Embedding,
		TopKRetrieval: req.TopKRetrieval,
		TopKRerank:    req.TopKRerank,
	}

	out, err := h.svc.Retrieve(r.Context(), input)
	if err != nil {
		// A failed run still carries state and reason for the caller.
		if out != nil {
			api.JSON(w, api.DomainErrorToHTTP(err), searchToResponse(out))
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, searchToResponse(out))
}
