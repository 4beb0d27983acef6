package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerkit/finrecon/internal/config"
	"github.com/ledgerkit/finrecon/internal/insights"
	jobsmem "github.com/ledgerkit/finrecon/internal/jobs/inmemory"
	"github.com/ledgerkit/finrecon/internal/logger"
	"github.com/ledgerkit/finrecon/internal/service"
	"github.com/ledgerkit/finrecon/internal/store"
	storebq "github.com/ledgerkit/finrecon/internal/store/bigquery"
	storemem "github.com/ledgerkit/finrecon/internal/store/inmemory"
	"github.com/ledgerkit/finrecon/internal/worker"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendBigQuery:
		bqStore, err := storebq.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bqStore.Close()
		st = bqStore
	default:
		log.Warn().Msg("Using in-memory store - data is lost on restart")
		st = storemem.New()
	}

	var opts []service.Option
	if cfg.RefineActions {
		opts = append(opts, service.WithRefiner(insights.NewRefiner(cfg.GeminiModel)))
	}
	svc := service.New(st, opts...)

	// In-process queue. A multi-instance deployment would swap this for
	// Cloud Tasks or Pub/Sub behind the same interfaces.
	jobStore := jobsmem.NewJobStore()
	jobQueue := jobsmem.NewQueue(cfg.JobBuffer, jobStore)
	runner := worker.NewRunner(svc, logger.Component(log, "worker"))

	log.Info().Str("backend", cfg.StoreBackend).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
