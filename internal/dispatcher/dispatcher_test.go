package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contentplan/internal/plan"
	queuememory "github.com/JakeFAU/contentplan/internal/queue/memory"
)

func TestDispatcherRunStartsWorkersAndStops(t *testing.T) {
	t.Parallel()

	r1 := &countingRunner{}
	r2 := &countingRunner{}
	dispatch := New(queuememory.NewQueue(1), r1, r2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return r1.started.Load() == 1 && r2.started.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

func TestDispatcherEnqueueForwardsToQueue(t *testing.T) {
	t.Parallel()

	q := queuememory.NewQueue(1)
	dispatch := New(q)
	require.NoError(t, dispatch.Enqueue(context.Background(), plan.QueueItem{JobID: "job-1"}))

	item, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)
}

func TestDispatcherEnqueueWrapsErrors(t *testing.T) {
	t.Parallel()

	dispatch := New(errorQueue{err: errors.New("boom")})
	err := dispatch.Enqueue(context.Background(), plan.QueueItem{JobID: "job"})
	require.EqualError(t, err, "queue enqueue: boom")
}

type countingRunner struct {
	started atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context) {
	r.started.Add(1)
	<-ctx.Done()
}

type errorQueue struct {
	err error
}

func (q errorQueue) Enqueue(context.Context, plan.QueueItem) error {
	return q.err
}

func (q errorQueue) Dequeue(context.Context) (plan.QueueItem, error) {
	return plan.QueueItem{}, q.err
}
