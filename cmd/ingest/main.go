package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ledgerkit/finrecon/internal/config"
	"github.com/ledgerkit/finrecon/internal/gcsfetch"
	"github.com/ledgerkit/finrecon/internal/logger"
	"github.com/ledgerkit/finrecon/internal/service"
	"github.com/ledgerkit/finrecon/internal/store"
	storebq "github.com/ledgerkit/finrecon/internal/store/bigquery"
	storemem "github.com/ledgerkit/finrecon/internal/store/inmemory"
)

func main() {
	log := logger.New()

	owner := flag.String("owner", "", "Owner id the rows belong to")
	source := flag.String("source", "", "External source (barclays, paypal, other); omit for a ledger import")
	file := flag.String("file", "", "CSV to import: local path or gs:// URI")
	flag.Parse()

	if *owner == "" {
		log.Fatal().Msg("Error: --owner is required")
	}
	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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
		log.Warn().Msg("Using in-memory store - imported rows will not outlive this run")
		st = storemem.New()
	}

	csvText, err := readCSV(ctx, *file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read CSV")
	}

	svc := service.New(st)

	if *source == "" {
		result, err := svc.ImportLedgerCSV(ctx, *owner, csvText)
		if err != nil {
			log.Fatal().Err(err).Msg("Ledger import failed")
		}
		fmt.Printf("Imported ledger: %d parsed, %d inserted, %d already present, %d invalid\n",
			result.Parsed, result.Inserted, result.SkippedExisting, result.SkippedInvalid)
		return
	}

	result, err := svc.ImportExternalCSV(ctx, *owner, *source, csvText)
	if err != nil {
		log.Fatal().Err(err).Msg("External import failed")
	}
	fmt.Printf("Imported %s: %d parsed, %d upserted, %d skipped, %d stored in total\n",
		result.Source, result.Parsed, result.Upserted, result.Skipped, result.TotalStored)
}

func readCSV(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "gs://") {
		data, err := gcsfetch.Fetch(ctx, path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
