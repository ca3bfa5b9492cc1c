package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/finance-insights/internal/jobs"
)

// Store keeps training job state in memory. It is safe for concurrent use
// and forgets everything on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.TrainModelJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.TrainModelJob),
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.TrainModelJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Create a copy to avoid external modifications
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy

	return nil
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.TrainModelJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	// Return a copy to avoid external modifications
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface. Results are ordered by
// creation time before Offset and Limit are applied.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.TrainModelJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.TrainModelJob{}

	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.TrainModelJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus implements the JobStore interface.
// It updates the status of a job in memory.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if status == jobs.JobStatusCompleted || status == jobs.JobStatusFailed {
		now := time.Now()
		job.CompletedAt = &now
	}

	return nil
}

// Latest returns the most recently created job for a user and model kind.
func (s *Store) Latest(userID string, kind jobs.ModelKind) (*jobs.TrainModelJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *jobs.TrainModelJob
	for _, job := range s.jobs {
		if job.UserID != userID || job.Kind != kind {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, false
	}
	jobCopy := *latest
	return &jobCopy, true
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
