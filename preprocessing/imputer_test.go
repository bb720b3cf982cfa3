package preprocessing

import (
	"math"
	"testing"

	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

// Two tight clusters: rows 0,1 near x1=0 with x2=1, rows 2,3 near x1=10 with
// x2=9. A query near x1=0 must borrow x2 from the first cluster.
func imputeTrainTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable("y", []string{"p", "p", "q", "q"},
		dataset.Column{Name: "x1", Kind: dataset.Numeric, Nums: []float64{0, 0.1, 10, 10.1}},
		dataset.Column{Name: "x2", Kind: dataset.Numeric, Nums: []float64{1, 1, 9, 9}},
		dataset.Column{Name: "c", Kind: dataset.Categorical, Cats: []string{"a", "a", "b", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func queryRow(t *testing.T, x1, x2 float64, c string) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable("y", []string{"?"},
		dataset.Column{Name: "x1", Kind: dataset.Numeric, Nums: []float64{x1}},
		dataset.Column{Name: "x2", Kind: dataset.Numeric, Nums: []float64{x2}},
		dataset.Column{Name: "c", Kind: dataset.Categorical, Cats: []string{c}})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestKNNImputerNumericFromNeighbors(t *testing.T) {
	im := NewKNNImputer(2)
	if err := im.Fit(imputeTrainTable(t)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, err := im.Transform(queryRow(t, 0.05, math.NaN(), "a"))
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got := out.Cols[1].Nums[0]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("imputed x2 = %v, want 1.0 (mean of nearest cluster)", got)
	}

	out, err = im.Transform(queryRow(t, 10.05, math.NaN(), "b"))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Cols[1].Nums[0]; math.Abs(got-9.0) > 1e-9 {
		t.Errorf("imputed x2 = %v, want 9.0", got)
	}
}

func TestKNNImputerCategoricalMode(t *testing.T) {
	im := NewKNNImputer(2)
	if err := im.Fit(imputeTrainTable(t)); err != nil {
		t.Fatal(err)
	}

	out, err := im.Transform(queryRow(t, 0.05, 1.0, ""))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Cols[2].Cats[0]; got != "a" {
		t.Errorf("imputed category = %q, want a", got)
	}
}

func TestKNNImputerGlobalFallback(t *testing.T) {
	// k larger than the available complete neighbors forces the global
	// column-mean fallback: (1+1+9+9)/4 = 5.
	im := NewKNNImputer(10)
	if err := im.Fit(imputeTrainTable(t)); err != nil {
		t.Fatal(err)
	}

	out, err := im.Transform(queryRow(t, 0.05, math.NaN(), "a"))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Cols[1].Nums[0]; math.Abs(got-5.0) > 1e-9 {
		t.Errorf("fallback imputation = %v, want global mean 5.0", got)
	}
}

func TestKNNImputerIdempotentAndPure(t *testing.T) {
	im := NewKNNImputer(2)
	if err := im.Fit(imputeTrainTable(t)); err != nil {
		t.Fatal(err)
	}

	query := queryRow(t, 0.05, math.NaN(), "")
	out1, err := im.Transform(query)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := im.Transform(query)
	if err != nil {
		t.Fatal(err)
	}

	if out1.Cols[1].Nums[0] != out2.Cols[1].Nums[0] || out1.Cols[2].Cats[0] != out2.Cols[2].Cats[0] {
		t.Error("two applies of the same artifact differ")
	}
	if !math.IsNaN(query.Cols[1].Nums[0]) {
		t.Error("Transform mutated its input")
	}
}

func TestKNNImputerNeverRefitsOnApply(t *testing.T) {
	im := NewKNNImputer(2)
	if err := im.Fit(imputeTrainTable(t)); err != nil {
		t.Fatal(err)
	}
	wantMean := im.Mean["x2"]

	// Apply to data from a very different distribution; the artifact must be
	// unchanged afterwards.
	if _, err := im.Transform(queryRow(t, 1000, 1000, "z")); err != nil {
		t.Fatal(err)
	}
	if im.Mean["x2"] != wantMean {
		t.Error("apply modified the fitted artifact")
	}

	if err := im.Fit(imputeTrainTable(t)); err == nil {
		t.Fatal("refit should be rejected")
	}
}

func TestKNNImputerCategoricalDistancePolicy(t *testing.T) {
	// With categorical distance enabled, a query matching cluster-b's label
	// but sitting between clusters leans toward cluster b.
	table, err := dataset.NewTable("y", []string{"p", "p", "q", "q"},
		dataset.Column{Name: "x1", Kind: dataset.Numeric, Nums: []float64{0, 0, 1, 1}},
		dataset.Column{Name: "x2", Kind: dataset.Numeric, Nums: []float64{1, 1, 9, 9}},
		dataset.Column{Name: "c", Kind: dataset.Categorical, Cats: []string{"a", "a", "b", "b"}})
	if err != nil {
		t.Fatal(err)
	}

	im := NewKNNImputer(2, WithCategoricalDistance())
	if err := im.Fit(table); err != nil {
		t.Fatal(err)
	}
	if !im.UseCategorical {
		t.Fatal("option not applied")
	}

	out, err := im.Transform(queryRow(t, 0.5, math.NaN(), "b"))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Cols[1].Nums[0]; math.Abs(got-9.0) > 1e-9 {
		t.Errorf("imputed x2 = %v, want 9.0 (categorical pull toward cluster b)", got)
	}
}

func TestKNNImputerNotFitted(t *testing.T) {
	im := NewKNNImputer(3)
	_, err := im.Transform(queryRow(t, 1, 2, "a"))
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
}
