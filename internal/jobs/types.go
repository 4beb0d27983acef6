// Package jobs defines the async job model: long-running engine
// operations (CSV imports from GCS, matching runs, recomputes) published
// by the API and consumed by the worker.
package jobs

import (
	"context"
	"time"
)

// JobType identifies what a job does.
type JobType string

const (
	JobTypeImportExternal  JobType = "import_external"
	JobTypeImportLedger    JobType = "import_ledger"
	JobTypeMatch           JobType = "match"
	JobTypeRecomputeDebt   JobType = "recompute_debt_service"
	JobTypeGenerateActions JobType = "generate_actions"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReconJob is one queued engine operation. The payload fields used
// depend on Type; OwnerID is always required.
type ReconJob struct {
	JobID string  `json:"job_id"`
	Type  JobType `json:"type"`

	OwnerID string `json:"owner_id"`

	// Source selects the external source for imports, matching and
	// recomputes. Empty means all sources where that is meaningful.
	Source string `json:"source,omitempty"`

	// GCSURI points at the uploaded CSV for import jobs.
	GCSURI string `json:"gcs_uri,omitempty"`

	// Matching overrides; zero means engine defaults.
	WindowDays           int   `json:"window_days,omitempty"`
	AmountToleranceMinor int64 `json:"amount_tolerance_minor,omitempty"`

	// MaxActions caps a generate_actions run.
	MaxActions int `json:"max_actions,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues jobs. Implementations may be in-memory or backed
// by an external queue.
type Publisher interface {
	Publish(ctx context.Context, job *ReconJob) error
	Close() error
}

// JobHandler processes one job; a returned error triggers a retry until
// MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job *ReconJob) error

// Consumer pulls jobs and feeds them to a handler.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobStore tracks job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReconJob) error
	GetJob(ctx context.Context, jobID string) (*ReconJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReconJob, error)
}

// JobFilter narrows a ListJobs call.
type JobFilter struct {
	OwnerID string
	Type    JobType
	Status  JobStatus
	Limit   int
}
