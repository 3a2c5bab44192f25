// Package batch runs groups of independent units concurrently and collects
// every outcome.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Unit is one independent piece of work.
type Unit[T any] func(ctx context.Context) (T, error)

// Result is the settled outcome of a unit.
type Result[T any] struct {
	Value    T
	Err      error
	Duration time.Duration
}

// Run executes all units concurrently and returns once each has settled.
// Results are positional. A failing or panicking unit never affects its
// siblings: the group carries no shared context cancellation, and ctx is only
// handed through to the units.
func Run[T any](ctx context.Context, units []Unit[T]) []Result[T] {
	results := make([]Result[T], len(units))
	if len(units) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(len(units))
	for i, unit := range units {
		g.Go(func() error {
			results[i] = settle(ctx, unit)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func settle[T any](ctx context.Context, unit Unit[T]) (res Result[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("unit panicked: %v", r)}
		}
		res.Duration = time.Since(start)
	}()
	v, err := unit(ctx)
	return Result[T]{Value: v, Err: err}
}

// Chunk splits items into consecutive groups of at most size elements.
// A non-positive size yields a single group.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	groups := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		groups = append(groups, items[start:end:end])
	}
	return groups
}

// Failed counts results that carry an error.
func Failed[T any](results []Result[T]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
