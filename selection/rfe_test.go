package selection

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/resample"
)

// noisyMatrix builds 30 rows where only "signal" separates the classes;
// "noise1" and "noise2" carry nothing.
func noisyMatrix() *dataset.Matrix {
	data := mat.NewDense(30, 3, nil)
	labels := make([]string, 30)
	for i := 0; i < 30; i++ {
		if i < 15 {
			data.Set(i, 0, float64(i)*0.1)
			labels[i] = "a"
		} else {
			data.Set(i, 0, 5+float64(i-15)*0.1)
			labels[i] = "b"
		}
		data.Set(i, 1, 1.0)
		data.Set(i, 2, float64(i%2))
	}
	return &dataset.Matrix{Columns: []string{"signal", "noise1", "noise2"}, Data: data, Labels: labels}
}

func newProvider(t *testing.T) log.LoggerProvider {
	t.Helper()
	provider, _ := log.NewTestLoggerProvider(log.LevelWarn)
	return provider
}

func quickCV() resample.Spec {
	return resample.Spec{Method: resample.MethodKFold, Folds: 5, Stratify: true}
}

func TestRFEKeepsTheSignalFeature(t *testing.T) {
	r, err := New(Config{Algorithm: "cart", Resampling: quickCV()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Select(context.Background(), noisyMatrix(), random.NewSource(9))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if len(res.Features) != res.BestSize {
		t.Fatalf("BestSize=%d but %d features", res.BestSize, len(res.Features))
	}
	found := false
	for _, f := range res.Features {
		if f == "signal" {
			found = true
		}
	}
	if !found {
		t.Errorf("selected %v, signal feature dropped", res.Features)
	}
	// The separable problem scores identically at every size that includes
	// the signal; ties must resolve to the smallest subset.
	if res.BestSize != 1 {
		t.Errorf("BestSize = %d, want 1 (tie toward smaller)", res.BestSize)
	}
	if len(res.Sizes) != 3 || res.Sizes[0] != 3 {
		t.Errorf("evaluated sizes = %v, want full set first", res.Sizes)
	}
}

func TestRFEExplicitSizes(t *testing.T) {
	r, err := New(Config{Algorithm: "forest", Sizes: []int{1, 2}, Resampling: quickCV()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Select(context.Background(), noisyMatrix(), random.NewSource(9))
	if err != nil {
		t.Fatal(err)
	}
	// Full set is always evaluated, then 2, then 1.
	if len(res.Sizes) != 3 || res.Sizes[0] != 3 || res.Sizes[1] != 2 || res.Sizes[2] != 1 {
		t.Errorf("sizes = %v, want [3 2 1]", res.Sizes)
	}
}

func TestRFERejectsRanklessFamily(t *testing.T) {
	if _, err := New(Config{Algorithm: "knn"}, newProvider(t)); err == nil {
		t.Fatal("knn cannot rank features and should be rejected")
	}
}

func TestRFERejectsBadSizes(t *testing.T) {
	r, err := New(Config{Algorithm: "cart", Sizes: []int{0}, Resampling: quickCV()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Select(context.Background(), noisyMatrix(), random.NewSource(9)); err == nil {
		t.Fatal("size 0 should be rejected")
	}
}
