// Package pool runs fetch tasks with a bounded number in flight.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Tasks handle their own failures; whatever a task
// returns is its result.
type Task[T any] func(ctx context.Context) T

// RunBounded runs tasks with at most limit of them executing at any instant
// and waits for all of them. result[i] is the value returned by tasks[i],
// whatever order they complete in. A limit below 1 is treated as 1.
func RunBounded[T any](ctx context.Context, tasks []Task[T], limit int) []T {
	results := make([]T, len(tasks))
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = task(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
