// Package worker dispatches queued jobs to the engine operations.
package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerkit/finrecon/internal/gcsfetch"
	"github.com/ledgerkit/finrecon/internal/jobs"
	"github.com/ledgerkit/finrecon/internal/service"
)

// FetchFunc downloads a CSV payload referenced by a gs:// URI.
type FetchFunc func(ctx context.Context, uri string) ([]byte, error)

// Runner turns ReconJobs into service calls.
type Runner struct {
	svc   *service.Service
	fetch FetchFunc
	log   zerolog.Logger
}

func NewRunner(svc *service.Service, log zerolog.Logger) *Runner {
	return &Runner{svc: svc, fetch: gcsfetch.Fetch, log: log}
}

// WithFetch overrides the CSV fetcher. Used by tests.
func (r *Runner) WithFetch(fetch FetchFunc) *Runner {
	r.fetch = fetch
	return r
}

// Handle processes one job. Satisfies jobs.JobHandler.
func (r *Runner) Handle(ctx context.Context, job *jobs.ReconJob) error {
	log := r.log.With().
		Str("job_id", job.JobID).
		Str("type", string(job.Type)).
		Str("owner_id", job.OwnerID).
		Logger()
	log.Info().Msg("Processing job")

	var err error
	switch job.Type {
	case jobs.JobTypeImportExternal:
		err = r.importExternal(ctx, job)
	case jobs.JobTypeImportLedger:
		err = r.importLedger(ctx, job)
	case jobs.JobTypeMatch:
		_, err = r.svc.MatchTransactions(ctx, job.OwnerID, job.Source, job.WindowDays, job.AmountToleranceMinor)
	case jobs.JobTypeRecomputeDebt:
		_, err = r.svc.RecomputeDebtService(ctx, job.OwnerID, job.Source)
	case jobs.JobTypeGenerateActions:
		_, err = r.svc.GenerateActions(ctx, job.OwnerID, job.Source, job.MaxActions)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}

	if err != nil {
		log.Error().Err(err).Msg("Job failed")
		return err
	}
	log.Info().Msg("Job completed")
	return nil
}

func (r *Runner) importExternal(ctx context.Context, job *jobs.ReconJob) error {
	csvText, err := r.payload(ctx, job)
	if err != nil {
		return err
	}
	_, err = r.svc.ImportExternalCSV(ctx, job.OwnerID, job.Source, csvText)
	return err
}

func (r *Runner) importLedger(ctx context.Context, job *jobs.ReconJob) error {
	csvText, err := r.payload(ctx, job)
	if err != nil {
		return err
	}
	_, err = r.svc.ImportLedgerCSV(ctx, job.OwnerID, csvText)
	return err
}

func (r *Runner) payload(ctx context.Context, job *jobs.ReconJob) (string, error) {
	if job.GCSURI == "" {
		return "", fmt.Errorf("import job %s has no gcs_uri", job.JobID)
	}
	data, err := r.fetch(ctx, job.GCSURI)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", job.GCSURI, err)
	}
	return string(data), nil
}
