// Package parallel provides bounded data-parallel execution helpers for the
// batch-compute workloads in tabstack: folds, hyperparameter combinations and
// base models are independent units scheduled onto a worker pool sized by the
// available cores.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Parallelize divides items across the available CPU cores and executes fn for
// each contiguous range (start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs sequentially below the threshold, in parallel
// above it.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach runs fn(i) for every i in [0, n) on at most workers goroutines.
// Workers stop picking up new units once ctx is cancelled; units already
// running complete. The error of each unit is recorded independently so one
// failing unit does not abort the rest; callers decide how to aggregate.
// Returns ctx.Err() when cancelled, nil otherwise.
func ForEach(ctx context.Context, n, workers int, fn func(i int) error) ([]error, error) {
	if n == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	errs := make([]error, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = fn(i)
			}
		}()
	}

	done := ctx.Done()
feed:
	for i := 0; i < n; i++ {
		select {
		case <-done:
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return errs, ctx.Err()
}
