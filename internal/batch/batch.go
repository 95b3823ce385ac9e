// Package batch provides the concurrency-bounded task runner shared by
// both LLM stages: N independent items, at most K in flight, per-item
// failures isolated and reported in input order.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome for one input item. Index is the item's
// position in the input slice, regardless of completion order.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Ok reports whether the item produced a usable value.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// RunAll executes op for every item with at most limit invocations in
// flight. Every item is attempted exactly once; a failing op contributes
// its error at the item's position and never aborts sibling tasks.
// The returned slice always has len(items) entries in input order.
func RunAll[I, O any](ctx context.Context, items []I, limit int, op func(context.Context, I) (O, error)) []Result[O] {
	results := make([]Result[O], len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = runOne(ctx, i, item, op)
			return nil
		})
	}

	// Goroutines always return nil; Wait is only a barrier here.
	_ = g.Wait()
	return results
}

// runOne isolates a single invocation, converting panics into the
// item's failure so one bad task cannot take down the batch.
func runOne[I, O any](ctx context.Context, idx int, item I, op func(context.Context, I) (O, error)) (res Result[O]) {
	res.Index = idx
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("task %d panicked: %v", idx, r)
		}
	}()

	res.Value, res.Err = op(ctx, item)
	return res
}
