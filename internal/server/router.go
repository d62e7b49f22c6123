package server

import (
	"net/http"

	"github.com/cloo-solutions/infofinder/internal/api"
	"github.com/cloo-solutions/infofinder/internal/api/handlers"
	"github.com/cloo-solutions/infofinder/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SearchHandler   *handlers.SearchHandler
	DocumentHandler *handlers.DocumentHandler
	MetricsHandler  http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/search", cfg.SearchHandler.Search)
	r.Post("/ingest", cfg.DocumentHandler.Ingest)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.IngestDocument)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
	})

	return r
}
