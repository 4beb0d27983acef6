package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerkit/finrecon/internal/config"
	"github.com/ledgerkit/finrecon/internal/gcsfetch"
	"github.com/ledgerkit/finrecon/internal/gcsupload"
	"github.com/ledgerkit/finrecon/internal/logger"
	"github.com/ledgerkit/finrecon/internal/service"
	"github.com/ledgerkit/finrecon/internal/store"
	storebq "github.com/ledgerkit/finrecon/internal/store/bigquery"
	storemem "github.com/ledgerkit/finrecon/internal/store/inmemory"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		runImport(log)
	case "match":
		runMatch(log)
	case "recompute":
		runRecompute(log)
	case "dashboard":
		runDashboard(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("finrecon CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import     Import a statement or ledger CSV")
	fmt.Println("  match      Run external-to-ledger matching")
	fmt.Println("  recompute  Recompute the debt service report for a source")
	fmt.Println("  dashboard  Print the dashboard summary for an owner")
	fmt.Println("  upload     Upload a CSV file to the GCS bucket")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func openStore(ctx context.Context, log zerolog.Logger) (store.Store, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.StoreBackend == config.BackendBigQuery {
		bqStore, err := storebq.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		return bqStore, func() { _ = bqStore.Close() }
	}

	log.Warn().Msg("Using in-memory store - results will not outlive this run")
	return storemem.New(), func() {}
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id the rows belong to")
	source := fs.String("source", "", "External source; omit for a ledger import")
	file := fs.String("file", "", "CSV to import: local path or gs:// URI")
	fs.Parse(os.Args[2:])

	if *owner == "" || *file == "" {
		log.Fatal().Msg("Usage: cli import -owner OWNER -file PATH [-source SOURCE]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, closeStore := openStore(ctx, log)
	defer closeStore()
	svc := service.New(st)

	csvText, err := readCSV(ctx, *file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read CSV")
	}

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
	fmt.Printf("Imported %s: %d parsed, %d upserted, %d skipped\n",
		result.Source, result.Parsed, result.Upserted, result.Skipped)
}

func runMatch(log zerolog.Logger) {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id")
	source := fs.String("source", "", "External source; omit to match every source")
	window := fs.Int("window", 0, "Date window in days (0 = default)")
	tolerance := fs.Int64("tolerance", 0, "Amount tolerance in minor units (0 = default)")
	fs.Parse(os.Args[2:])

	if *owner == "" {
		log.Fatal().Msg("Usage: cli match -owner OWNER [-source SOURCE] [-window DAYS] [-tolerance MINOR]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, closeStore := openStore(ctx, log)
	defer closeStore()
	svc := service.New(st)

	result, err := svc.MatchTransactions(ctx, *owner, *source, *window, *tolerance)
	if err != nil {
		log.Fatal().Err(err).Msg("Matching run failed")
	}

	fmt.Printf("Matched %d, unmatched %d (window %dd, tolerance %d)\n",
		result.Matched, result.Unmatched, result.WindowDays, result.AmountToleranceMinor)
	for _, s := range result.BySource {
		fmt.Printf("  %-10s matched %d, unmatched %d\n", s.Source, s.Matched, s.Unmatched)
	}
}

func runRecompute(log zerolog.Logger) {
	fs := flag.NewFlagSet("recompute", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id")
	source := fs.String("source", "", "External source (required)")
	fs.Parse(os.Args[2:])

	if *owner == "" || *source == "" {
		log.Fatal().Msg("Usage: cli recompute -owner OWNER -source SOURCE")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, closeStore := openStore(ctx, log)
	defer closeStore()
	svc := service.New(st)

	report, err := svc.RecomputeDebtService(ctx, *owner, *source)
	if err != nil {
		log.Fatal().Err(err).Msg("Recompute failed")
	}

	fmt.Printf("Debt service for %s (%d months)\n", report.Source, len(report.PerMonth))
	for _, m := range report.PerMonth {
		fmt.Printf("  %s  spend %s  payments %s  interest %s  principal %s\n",
			m.Month, minor(m.StatementSpendMinor), minor(m.LedgerPaymentsMinor),
			minor(m.EstimatedInterestMinor), minor(m.PrincipalRepaymentMinor))
	}
	fmt.Printf("Totals: interest %s, principal %s\n",
		minor(report.Totals.EstimatedInterestMinor), minor(report.Totals.PrincipalRepaymentMinor))
}

func runDashboard(log zerolog.Logger) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id")
	start := fs.String("start", "", "Range start (YYYY-MM-DD; default 6 months back)")
	end := fs.String("end", "", "Range end (YYYY-MM-DD; default today)")
	fs.Parse(os.Args[2:])

	if *owner == "" {
		log.Fatal().Msg("Usage: cli dashboard -owner OWNER [-start DATE] [-end DATE]")
	}

	var startTime, endTime time.Time
	var err error
	if *start != "" {
		if startTime, err = time.Parse("2006-01-02", *start); err != nil {
			log.Fatal().Err(err).Msg("Invalid -start date")
		}
	}
	if *end != "" {
		if endTime, err = time.Parse("2006-01-02", *end); err != nil {
			log.Fatal().Err(err).Msg("Invalid -end date")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, closeStore := openStore(ctx, log)
	defer closeStore()
	svc := service.New(st)

	dash, err := svc.Dashboard(ctx, *owner, startTime, endTime)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build dashboard")
	}

	fmt.Println("\n=== Monthly flows ===")
	for _, m := range dash.Monthly {
		fmt.Printf("  %s  in %s  out %s  net %s\n",
			m.Month, minor(m.IncomeMinor), minor(m.OutflowMinor), minor(m.NetMinor))
	}

	fmt.Printf("\n=== Budget (%d categories) ===\n", len(dash.BudgetHealth.ByCategory))
	for _, row := range dash.BudgetHealth.ByCategory {
		fmt.Printf("  %-20s actual %s  budget %s  %.2f%%\n",
			row.CategoryKey, minor(row.ActualMinor), minor(row.BudgetMinor), row.UtilizationPct)
	}

	fmt.Printf("\n=== Goals (%d) ===\n", len(dash.Goals))
	for _, g := range dash.Goals {
		line := fmt.Sprintf("  %-20s remaining %s", g.GoalTitle, minor(g.RemainingMinor))
		if g.EtaMonths != nil {
			line += fmt.Sprintf("  eta %d months", *g.EtaMonths)
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name (default from config)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" {
		if cfg, err := config.Load(); err == nil {
			*bucketName = cfg.Bucket
		}
	}
	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	object := gcsupload.ObjectName(filepath.Base(*filePath), time.Now())

	log.Info().
		Str("bucket", *bucketName).
		Str("object", object).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := gcsupload.UploadFile(ctx, *bucketName, object, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func minor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s£%d.%02d", sign, v/100, v%100)
}

func readCSV(ctx context.Context, path string) (string, error) {
	if len(path) > 5 && path[:5] == "gs://" {
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
