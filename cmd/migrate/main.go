// Command migrate provisions the BigQuery dataset and tables the engine
// stores its rows in. Table schemas come from the same struct
// definitions the store writes with, so the two cannot drift.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ledgerkit/finrecon/internal/logger"
	storebq "github.com/ledgerkit/finrecon/internal/store/bigquery"
)

func main() {
	log := logger.New()

	projectID := flag.String("project", "", "GCP project ID (required)")
	datasetID := flag.String("dataset", "finrecon", "BigQuery dataset ID")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := storebq.New(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer st.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Provisioning tables")

	if err := st.EnsureTables(ctx); err != nil {
		log.Fatal().Err(err).Msg("Provisioning failed")
	}

	fmt.Printf("Dataset %s.%s is ready.\n", *projectID, *datasetID)
}
