package preprocessing

import (
	"math"
	"testing"

	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

func numTable(t *testing.T, name string, values []float64) *dataset.Table {
	t.Helper()
	labels := make([]string, len(values))
	for i := range labels {
		labels[i] = "x"
	}
	table, err := dataset.NewTable("y", labels,
		dataset.Column{Name: name, Kind: dataset.Numeric, Nums: values})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestMinMaxRoundTrip(t *testing.T) {
	norm := NewMinMaxNormalizer()
	if err := norm.Fit(numTable(t, "v", []float64{1, 2, 3, 4, 5})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	tests := []struct {
		in   float64
		want float64
	}{
		{3, 0.5},
		{1, 0.0},
		{5, 1.0},
		{10, 2.25}, // out of training range: no clamping
		{-3, -1.0}, // below range is equally legal
	}
	for _, tt := range tests {
		out, err := norm.Transform(numTable(t, "v", []float64{tt.in}))
		if err != nil {
			t.Fatalf("Transform(%v) failed: %v", tt.in, err)
		}
		if got := out.Cols[0].Nums[0]; math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Transform(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMinMaxIdempotentApply(t *testing.T) {
	norm := NewMinMaxNormalizer()
	if err := norm.Fit(numTable(t, "v", []float64{0, 10})); err != nil {
		t.Fatal(err)
	}

	in := numTable(t, "v", []float64{2, 7, 11})
	out1, err := norm.Transform(in)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := norm.Transform(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out1.Cols[0].Nums {
		if out1.Cols[0].Nums[i] != out2.Cols[0].Nums[i] {
			t.Fatal("two applies of the same artifact differ")
		}
	}
	// The input itself is untouched.
	if in.Cols[0].Nums[0] != 2 {
		t.Error("Transform mutated its input")
	}
}

func TestMinMaxConstantColumn(t *testing.T) {
	norm := NewMinMaxNormalizer()
	if err := norm.Fit(numTable(t, "v", []float64{4, 4, 4})); err != nil {
		t.Fatal(err)
	}
	out, err := norm.Transform(numTable(t, "v", []float64{4, 9}))
	if err != nil {
		t.Fatal(err)
	}
	if out.Cols[0].Nums[0] != 0 || out.Cols[0].Nums[1] != 5 {
		t.Errorf("constant column scaling wrong: %v", out.Cols[0].Nums)
	}
}

func TestMinMaxRefitRejected(t *testing.T) {
	norm := NewMinMaxNormalizer()
	if err := norm.Fit(numTable(t, "v", []float64{1, 2})); err != nil {
		t.Fatal(err)
	}
	err := norm.Fit(numTable(t, "v", []float64{5, 6}))
	if err == nil {
		t.Fatal("second Fit should fail; artifacts are frozen")
	}
	var afe *errors.AlreadyFittedError
	if !errors.As(err, &afe) {
		t.Fatalf("expected AlreadyFittedError, got %T", err)
	}
}

func TestMinMaxLayoutMismatch(t *testing.T) {
	norm := NewMinMaxNormalizer()
	if err := norm.Fit(numTable(t, "v", []float64{1, 2})); err != nil {
		t.Fatal(err)
	}
	_, err := norm.Transform(numTable(t, "other", []float64{1}))
	if err == nil {
		t.Fatal("expected layout mismatch error")
	}
	var lme *errors.FeatureLayoutMismatchError
	if !errors.As(err, &lme) {
		t.Fatalf("expected FeatureLayoutMismatchError, got %T", err)
	}
}

func TestMinMaxNotFitted(t *testing.T) {
	norm := NewMinMaxNormalizer()
	_, err := norm.Transform(numTable(t, "v", []float64{1}))
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
}
