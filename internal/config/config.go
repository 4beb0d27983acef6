// Package config loads engine configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
)

// Config is everything the binaries need from the environment.
type Config struct {
	// Port is the HTTP listen port for cmd/api.
	Port int

	// StoreBackend selects the persistence layer: memory or bigquery.
	StoreBackend string

	// ProjectID and DatasetID locate the BigQuery dataset when the
	// bigquery backend is selected.
	ProjectID string
	DatasetID string

	// Bucket is the GCS bucket uploaded CSVs are fetched from.
	Bucket string

	// RefineActions enables Gemini refinement of generated actions.
	RefineActions bool
	// GeminiModel overrides the default refinement model.
	GeminiModel string

	// JobBuffer is the in-memory job queue capacity.
	JobBuffer int
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	// Ignore a missing .env: it only exists in local setups.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          envInt("PORT", 8080),
		StoreBackend:  envString("STORE_BACKEND", BackendMemory),
		ProjectID:     os.Getenv("GCP_PROJECT_ID"),
		DatasetID:     envString("BIGQUERY_DATASET", "finrecon"),
		Bucket:        os.Getenv("GCS_BUCKET"),
		RefineActions: envBool("REFINE_ACTIONS", false),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		JobBuffer:     envInt("JOB_BUFFER", 64),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %d", cfg.Port)
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendBigQuery:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("config: GCP_PROJECT_ID required for the bigquery backend")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
