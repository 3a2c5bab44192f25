package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contentplan/internal/plan"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestJobStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1", Owner: "u1", Status: plan.StatusCompleted, Progress: 50}))
	require.ErrorIs(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}), ErrJobExists)

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, plan.StatusProcessing, job.Status)
	require.Zero(t, job.Progress)
	require.False(t, job.CreatedAt.IsZero())

	_, err = store.GetJob(ctx, "missing")
	require.ErrorIs(t, err, plan.ErrNotFound)
}

func TestJobStoreUpdateIfActiveMergesAndKeepsProgressMonotonic(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))

	applied, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{
		Progress:    plan.Ptr(40),
		CurrentStep: plan.Ptr("clusters"),
	})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{Progress: plan.Ptr(10)})
	require.NoError(t, err)
	require.True(t, applied)

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, 40, job.Progress)
	require.Equal(t, "clusters", job.CurrentStep)
	require.True(t, job.UpdatedAt.After(job.CreatedAt))
}

func TestJobStoreUpdateAfterCancelIsNoop(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))
	_, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{Progress: plan.Ptr(20), CurrentStep: plan.Ptr("niche")})
	require.NoError(t, err)

	ok, err := store.Cancel(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	before, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)

	applied, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{
		Status:      plan.Ptr(plan.StatusCompleted),
		Progress:    plan.Ptr(100),
		CurrentStep: plan.Ptr("done"),
		Plan:        []plan.ArticleBrief{{Title: "late"}},
	})
	require.NoError(t, err)
	require.False(t, applied)

	after, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, plan.StatusCancelled, after.Status)
	require.NotNil(t, after.CompletedAt)
	require.Empty(t, after.Plan)
}

func TestJobStoreCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))

	ok, err := store.Cancel(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.Cancel(ctx, "job-1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.Cancel(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJobStoreCancelDoesNotOverrideCompleted(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))
	_, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{Status: plan.Ptr(plan.StatusCompleted)})
	require.NoError(t, err)

	ok, err := store.Cancel(ctx, "job-1")
	require.NoError(t, err)
	require.False(t, ok)
	job, _ := store.GetJob(ctx, "job-1")
	require.Equal(t, plan.StatusCompleted, job.Status)
}

func TestJobStoreLatestQueries(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "a", Owner: "u1", ProjectRef: "p1"}))
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "b", Owner: "u1", ProjectRef: "p1"}))
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "c", Owner: "u2", ProjectRef: "p1"}))

	_, err := store.UpdateIfActive(ctx, "a", plan.JobUpdate{Status: plan.Ptr(plan.StatusCompleted)})
	require.NoError(t, err)
	_, err = store.Cancel(ctx, "c")
	require.NoError(t, err)

	latest, err := store.LatestActiveForProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "b", latest.ID)

	_, err = store.UpdateIfActive(ctx, "b", plan.JobUpdate{Status: plan.Ptr(plan.StatusFailed)})
	require.NoError(t, err)

	latest, err = store.LatestActiveForProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "a", latest.ID)

	_, err = store.LatestActiveForProject(ctx, "p1", plan.StatusProcessing, plan.StatusPending)
	require.ErrorIs(t, err, plan.ErrNotFound)

	owned, err := store.LatestForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "b", owned.ID)

	_, err = store.LatestForOwner(ctx, "nobody")
	require.ErrorIs(t, err, plan.ErrNotFound)
}

func TestJobStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))
	_, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{
		Plan:  []plan.ArticleBrief{{Title: "one"}},
		Stats: &plan.Stats{Total: 1, ByPriority: map[plan.Priority]int{plan.PriorityHigh: 1}},
	})
	require.NoError(t, err)

	job, _ := store.GetJob(ctx, "job-1")
	job.Plan[0].Title = "mutated"
	job.Stats.ByPriority[plan.PriorityHigh] = 99

	again, _ := store.GetJob(ctx, "job-1")
	require.Equal(t, "one", again.Plan[0].Title)
	require.Equal(t, 1, again.Stats.ByPriority[plan.PriorityHigh])
}

func TestJobStoreConcurrentCancelAndProgress(t *testing.T) {
	t.Parallel()

	store := NewJobStore(newFakeClock())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, plan.Job{ID: "job-1"}))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, _ = store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{Progress: plan.Ptr(p)})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = store.Cancel(ctx, "job-1")
	}()
	wg.Wait()

	frozen, _ := store.GetJob(ctx, "job-1")
	require.Equal(t, plan.StatusCancelled, frozen.Status)
	applied, err := store.UpdateIfActive(ctx, "job-1", plan.JobUpdate{Progress: plan.Ptr(100)})
	require.NoError(t, err)
	require.False(t, applied)
	after, _ := store.GetJob(ctx, "job-1")
	require.Equal(t, frozen.Progress, after.Progress)
}
