package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ledgerkit/finrecon/internal/jobs"
)

// JobStore keeps job state in a map. Safe for concurrent use; state is
// lost on restart.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ReconJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*jobs.ReconJob)}
}

func (s *JobStore) SaveJob(_ context.Context, job *jobs.ReconJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *JobStore) GetJob(_ context.Context, jobID string) (*jobs.ReconJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: job %s not found", jobID)
	}
	cp := *job
	return &cp, nil
}

func (s *JobStore) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.ReconJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*jobs.ReconJob
	for _, job := range s.jobs {
		if filter.OwnerID != "" && job.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}

	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

var _ jobs.JobStore = (*JobStore)(nil)
