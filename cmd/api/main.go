package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ledgerkit/finrecon/internal/api/handlers"
	"github.com/ledgerkit/finrecon/internal/api/middleware"
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

	ctx := context.Background()

	// Select the persistence backend.
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

	// Job infrastructure for async imports.
	jobStore := jobsmem.NewJobStore()
	jobQueue := jobsmem.NewQueue(cfg.JobBuffer, jobStore)
	runner := worker.NewRunner(svc, logger.Component(log, "worker"))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, runner.Handle); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	importsHandler := handlers.NewImportsHandler(svc, jobQueue, log)
	reconHandler := handlers.NewReconHandler(svc, st, log)
	transactionsHandler := handlers.NewTransactionsHandler(st, log)
	actionsHandler := handlers.NewActionsHandler(svc, log)
	categoriesHandler := handlers.NewCategoriesHandler(st, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	uploadsHandler := handlers.NewUploadsHandler(cfg.Bucket, log)
	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - CSV uploads are disabled")
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/imports/external", postOnly(importsHandler.ImportExternal))
	mux.HandleFunc("/api/imports/ledger", postOnly(importsHandler.ImportLedger))
	mux.HandleFunc("/api/uploads", postOnly(uploadsHandler.Upload))

	mux.HandleFunc("/api/match", postOnly(reconHandler.Match))
	mux.HandleFunc("/api/matches", getOnly(reconHandler.ListMatches))

	mux.HandleFunc("/api/debt-service/recompute", postOnly(reconHandler.RecomputeDebtService))
	mux.HandleFunc("/api/debt-service", getOnly(reconHandler.GetDebtService))

	mux.HandleFunc("/api/dashboard", getOnly(reconHandler.Dashboard))

	mux.HandleFunc("/api/transactions/external", getOnly(transactionsHandler.ListExternal))
	mux.HandleFunc("/api/transactions/ledger", getOnly(transactionsHandler.ListLedger))

	mux.HandleFunc("/api/actions/generate", postOnly(actionsHandler.Generate))
	mux.HandleFunc("/api/actions", getOnly(actionsHandler.List))
	mux.HandleFunc("/api/actions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		actionID := strings.TrimPrefix(r.URL.Path, "/api/actions/")
		if actionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Action ID is required")
			return
		}
		actionsHandler.UpdateStatus(w, r, actionID)
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.List(w, r)
		case http.MethodPut:
			categoriesHandler.SaveOverrides(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", getOnly(jobsHandler.ListJobs))
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Owner(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodPost, h)
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodGet, h)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
