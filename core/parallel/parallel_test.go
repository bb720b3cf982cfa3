package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/harukisato/tabstack/pkg/errors"
)

func TestParallelizeCoversAllItems(t *testing.T) {
	const items = 1000
	var covered [items]int32

	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&covered[i], 1)
		}
	})

	for i, c := range covered {
		if c != 1 {
			t.Fatalf("item %d visited %d times", i, c)
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	if called {
		t.Error("fn should not be called for zero items")
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	// Below the threshold the work runs as a single sequential range.
	var calls int32
	ParallelizeWithThreshold(10, 64, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 10 {
			t.Errorf("sequential range = (%d, %d), want (0, 10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("sequential path ran %d ranges, want 1", calls)
	}

	// Above the threshold every item is still visited exactly once.
	const items = 500
	var covered [items]int32
	ParallelizeWithThreshold(items, 64, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&covered[i], 1)
		}
	})
	for i, c := range covered {
		if c != 1 {
			t.Fatalf("item %d visited %d times", i, c)
		}
	}
}

func TestForEachRunsEveryUnitOnce(t *testing.T) {
	const n = 64
	var counts [n]int32

	errs, err := ForEach(context.Background(), n, 4, func(i int) error {
		atomic.AddInt32(&counts[i], 1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("unit %d ran %d times", i, c)
		}
	}
	for i, e := range errs {
		if e != nil {
			t.Fatalf("unit %d reported error: %v", i, e)
		}
	}
}

func TestForEachIsolatesUnitErrors(t *testing.T) {
	errs, err := ForEach(context.Background(), 10, 3, func(i int) error {
		if i == 4 {
			return errors.New("unit failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected cancellation error: %v", err)
	}
	for i, e := range errs {
		if i == 4 && e == nil {
			t.Error("expected error for unit 4")
		}
		if i != 4 && e != nil {
			t.Errorf("unit %d should not fail: %v", i, e)
		}
	}
}

func TestForEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	_, err := ForEach(ctx, 1000, 1, func(i int) error {
		if atomic.AddInt32(&started, 1) == 5 {
			cancel()
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected context error after cancel")
	}
	if n := atomic.LoadInt32(&started); n >= 1000 {
		t.Errorf("expected early stop, ran %d units", n)
	}
}
