// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"clm-paralegal/internal/chunker"
	"clm-paralegal/internal/config"
	"clm-paralegal/internal/domain/ports/repository"
	aiAdapters "clm-paralegal/internal/infra/adapters/ai"
	"clm-paralegal/internal/infra/adapters/pdf"
	"clm-paralegal/internal/infra/api"
	"clm-paralegal/internal/infra/api/apiv1"
	pg "clm-paralegal/internal/infra/db/postgres"
	"clm-paralegal/internal/infra/logging"
	"clm-paralegal/internal/infra/memstore"
	"clm-paralegal/internal/infra/metrics"
	red "clm-paralegal/internal/infra/redis"
	"clm-paralegal/internal/infra/security"
	"clm-paralegal/internal/infra/vectorstore/memory"
	"clm-paralegal/internal/infra/vectorstore/qdrant"
	"clm-paralegal/internal/infra/worker"
	"clm-paralegal/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted prompts)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("clm-paralegal stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- AI ----
	ai, err := aiAdapters.NewFromConfig(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("provider", cfg.AI.Provider).
		Str("generation_model", cfg.AI.GenerationModel).
		Str("embedding_model", cfg.AI.EmbeddingModel).
		Msg("AI adapter ready")

	// ---- Postgres (pgvector index and/or job store) ----
	var pool *pgxpool.Pool
	if cfg.VectorStore.Backend == "pgvector" || cfg.Jobs.Store == "postgres" {
		pool, err = pg.Connect(ctx, cfg.VectorStore.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
	}

	// ---- Vector index ----
	index, err := newVectorIndex(ctx, cfg.VectorStore, pool, logger)
	if err != nil {
		return err
	}

	// ---- Sessions (and the optional rate limiter, which shares Redis) ----
	var (
		sessions repository.SessionStore
		limiter  api.Limiter
	)
	if cfg.Sessions.Backend == "redis" || cfg.HTTP.RateLimitPerMinute > 0 {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		if cfg.Sessions.Backend == "redis" {
			store := red.NewSessionStore(rc, cfg.Redis.TTL, cfg.Sessions.LockTTL, logger)
			if cfg.Sessions.EncryptionKey != "" {
				c, err := security.NewCipher(cfg.Sessions.EncryptionKey)
				if err != nil {
					return fmt.Errorf("sessions.encryption_key: %w", err)
				}
				store.WithSealer(c)
			} else {
				logger.Warn().Msg("redis sessions are stored unencrypted; set sessions.encryption_key")
			}
			sessions = store
		}
		if cfg.HTTP.RateLimitPerMinute > 0 {
			limiter = red.NewRateLimiter(rc)
		}
	}
	if sessions == nil {
		sessions = memstore.NewSessionStore()
	}
	logger.Info().
		Str("vector_store", cfg.VectorStore.Backend).
		Str("sessions", cfg.Sessions.Backend).
		Str("jobs", cfg.Jobs.Store).
		Msg("storage ready")

	// ---- Use cases ----
	split, err := chunker.NewWindowChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	analysisUC := usecase.NewAnalysisUseCase(ai, cfg.AI.GenerationModel, cfg.Analysis.MinInputLength, cfg.Runtime.Dev, logger)
	qaUC := usecase.NewQAUseCase(split, ai, index, sessions, usecase.QAOptions{
		GenerationModel: cfg.AI.GenerationModel,
		EmbeddingModel:  cfg.AI.EmbeddingModel,
		Collection:      cfg.RAG.Collection,
		TopK:            cfg.RAG.TopK,
		RecencyWindow:   cfg.RAG.RecencyWindow,
		MinInputLength:  cfg.Analysis.MinInputLength,
		AutoInit:        cfg.RAG.AutoInit(),
		Dev:             cfg.Runtime.Dev,
	}, logger)

	// ---- Async analysis jobs ----
	var jobRepo repository.AnalysisJobRepository = memstore.NewAnalysisJobRepo()
	if cfg.Jobs.Store == "postgres" {
		pgJobs := pg.NewAnalysisJobRepo(pool)
		if err := pgJobs.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		jobRepo = pgJobs
	}
	workers := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, logger)
	workers.Start(ctx)
	defer workers.Stop()
	jobs := worker.NewAnalysisJobProcessor(jobRepo, analysisUC, workers, cfg.Jobs.Retention, logger)
	go jobs.Start(ctx)

	// ---- HTTP ----
	v1 := apiv1.NewServer(analysisUC, qaUC, jobs, pdf.NewExtractor(), cfg.HTTP.MaxUploadBytes, logger)
	srv := api.NewServer(cfg.HTTP, api.NewRouter(cfg.HTTP, v1, limiter, logger), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newVectorIndex(ctx context.Context, cfg config.VectorStoreConfig, pool *pgxpool.Pool, logger *zerolog.Logger) (repository.VectorIndex, error) {
	switch cfg.Backend {
	case "qdrant":
		s, err := qdrant.NewStorage(qdrant.Config{
			URL:       cfg.Qdrant.URL,
			APIKey:    cfg.Qdrant.APIKey,
			Dimension: cfg.Qdrant.Dimension,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		return s, nil
	case "pgvector":
		repo := pg.NewChunkRepo(pool, cfg.Postgres.Dimension)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("pgvector: %w", err)
		}
		return repo, nil
	default:
		return memory.NewStorage(), nil
	}
}
