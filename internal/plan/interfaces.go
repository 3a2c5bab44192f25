package plan

import (
	"context"
	"time"
)

// JobStore persists plan jobs. Implementations must make UpdateIfActive and
// Cancel atomic with respect to each other.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	// LatestActiveForProject returns the newest job for the project that is
	// neither cancelled nor failed. A non-empty statuses list narrows the match.
	LatestActiveForProject(ctx context.Context, projectRef string, statuses ...JobStatus) (Job, error)
	LatestForOwner(ctx context.Context, owner string) (Job, error)
	// UpdateIfActive merges the update unless the job already left the active
	// states; a dropped update reports applied=false without an error.
	UpdateIfActive(ctx context.Context, jobID string, update JobUpdate) (bool, error)
	// Cancel moves an active job to cancelled and reports whether it did.
	Cancel(ctx context.Context, jobID string) (bool, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	SourceURL string
	Submitted int64
}

// Queue provides enqueue/dequeue semantics for plan jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}
