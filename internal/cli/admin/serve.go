package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/infofinder/internal/api/handlers"
	"github.com/cloo-solutions/infofinder/internal/config"
	"github.com/cloo-solutions/infofinder/internal/index"
	"github.com/cloo-solutions/infofinder/internal/jobs"
	"github.com/cloo-solutions/infofinder/internal/metrics"
	"github.com/cloo-solutions/infofinder/internal/openai"
	"github.com/cloo-solutions/infofinder/internal/repository"
	"github.com/cloo-solutions/infofinder/internal/server"
	"github.com/cloo-solutions/infofinder/internal/service"
	"github.com/cloo-solutions/infofinder/internal/store"
	"github.com/cloo-solutions/infofinder/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval API server",
		Long:  "Start the infofinder API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	chunkStore := store.NewMemoryStore(cfg.EmbeddingDimensions)
	vectorIdx := index.NewVectorIndex()
	lexicalIdx := index.NewLexicalIndex(index.BM25Params{K1: cfg.BM25K1, B: cfg.BM25B})
	chunkStore.Attach(vectorIdx, lexicalIdx)

	var persister service.ChunkPersister
	if cfg.HasDatabase() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := repository.RunMigrations(cfg.DatabaseURL, "file://migrations"); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		persister = repository.NewChunkRepository(pool)
	}

	var embedder service.Embedder
	var scorer service.RelevanceScorer
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		embedder = client
		scorer = client
		log.Println("OpenAI embedding and scoring enabled")
	} else {
		log.Println("no OpenAI key configured: serving pre-embedded queries only, reranking disabled")
	}

	var counter service.TokenCounter
	if tc, err := service.NewTiktokenCounter(""); err != nil {
		log.Printf("tiktoken unavailable, falling back to word counts: %v", err)
	} else {
		counter = tc
	}

	m := metrics.NewRetrievalMetrics()

	ingestSvc := service.NewIngestionService(chunkStore, persister, embedder, counter, cfg.Retrieval()).WithMetrics(m)
	ingestSvc.AttachBuilders(vectorIdx, lexicalIdx)

	if persister != nil {
		loaded, err := ingestSvc.LoadFromPersister(ctx)
		if err != nil {
			return fmt.Errorf("failed to load persisted chunks: %w", err)
		}
		log.Printf("loaded %d persisted chunks", loaded)
	}

	retrievalSvc, err := service.NewRetrievalService(chunkStore, vectorIdx, lexicalIdx, embedder, scorer, cfg.Retrieval(), m)
	if err != nil {
		return fmt.Errorf("failed to build retrieval service: %w", err)
	}

	refreshWorker := jobs.NewWorker(ingestSvc, cfg.RefreshInterval)
	go refreshWorker.Start(ctx)
	log.Println("index refresh worker started")

	routerCfg := server.RouterConfig{
		SearchHandler:   handlers.NewSearchHandler(retrievalSvc),
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		MetricsHandler:  m.Handler(),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	refreshWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
