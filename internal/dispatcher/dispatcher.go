// Package dispatcher launches plan jobs onto a pool of workers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/contentplan/internal/plan"
)

// Runner is a long-lived worker loop.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher fans queued jobs out to a pool of workers. Enqueue returns as
// soon as the job is queued; callers never wait on the pipeline itself.
type Dispatcher struct {
	queue   plan.Queue
	workers []Runner
}

// New creates a Dispatcher.
func New(queue plan.Queue, workers ...Runner) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes and every
// worker has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue hands a job to the worker pool.
func (d *Dispatcher) Enqueue(ctx context.Context, item plan.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
