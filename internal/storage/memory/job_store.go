// Package memory holds in-process stores for development and tests.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/JakeFAU/contentplan/internal/plan"
)

// ErrJobExists is returned when a job id is reused.
var ErrJobExists = errors.New("job already exists")

// JobStore keeps jobs in a map guarded by a mutex. Conditional writes are
// compare-and-swap under the write lock, so a cancel can never interleave
// with an in-flight progress write.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]plan.Job
	clock plan.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(clock plan.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]plan.Job),
		clock: clock,
	}
}

// CreateJob stores a new job in processing with zero progress.
func (s *JobStore) CreateJob(_ context.Context, job plan.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return ErrJobExists
	}
	now := s.clock.Now()
	job.Status = plan.StatusProcessing
	job.Progress = 0
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (plan.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return plan.Job{}, plan.ErrNotFound
	}
	return cloneJob(job), nil
}

// LatestActiveForProject returns the newest non-cancelled, non-failed job for
// the project, optionally restricted to statuses.
func (s *JobStore) LatestActiveForProject(
	_ context.Context,
	projectRef string,
	statuses ...plan.JobStatus,
) (plan.Job, error) {
	return s.latest(func(j plan.Job) bool {
		if j.ProjectRef != projectRef {
			return false
		}
		if j.Status == plan.StatusCancelled || j.Status == plan.StatusFailed {
			return false
		}
		return len(statuses) == 0 || slices.Contains(statuses, j.Status)
	})
}

// LatestForOwner returns the newest job created by owner.
func (s *JobStore) LatestForOwner(_ context.Context, owner string) (plan.Job, error) {
	return s.latest(func(j plan.Job) bool { return j.Owner == owner })
}

// UpdateIfActive merges update into the job while it is pending or processing.
func (s *JobStore) UpdateIfActive(_ context.Context, jobID string, update plan.JobUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false, plan.ErrNotFound
	}
	if !job.Status.Active() {
		return false, nil
	}
	update.Apply(&job, s.clock.Now())
	s.jobs[jobID] = cloneJob(job)
	return true, nil
}

// Cancel marks an active job cancelled. Cancelling twice reports false.
func (s *JobStore) Cancel(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || !job.Status.Active() {
		return false, nil
	}
	plan.JobUpdate{Status: plan.Ptr(plan.StatusCancelled)}.Apply(&job, s.clock.Now())
	s.jobs[jobID] = job
	return true, nil
}

func (s *JobStore) latest(match func(plan.Job) bool) (plan.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  plan.Job
		found bool
	)
	for _, j := range s.jobs {
		if !match(j) {
			continue
		}
		// Ties on CreatedAt fall back to the id so the answer is stable.
		if !found || j.CreatedAt.After(best.CreatedAt) ||
			(j.CreatedAt.Equal(best.CreatedAt) && j.ID > best.ID) {
			best = j
			found = true
		}
	}
	if !found {
		return plan.Job{}, plan.ErrNotFound
	}
	return cloneJob(best), nil
}

// cloneJob detaches slices and maps so callers cannot mutate stored state.
func cloneJob(j plan.Job) plan.Job {
	j.Plan = slices.Clone(j.Plan)
	j.Clusters = slices.Clone(j.Clusters)
	j.Stats.ByContentType = maps.Clone(j.Stats.ByContentType)
	j.Stats.ByPriority = maps.Clone(j.Stats.ByPriority)
	if j.CompletedAt != nil {
		ts := *j.CompletedAt
		j.CompletedAt = &ts
	}
	return j
}
