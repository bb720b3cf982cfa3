package algorithm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

// separableData builds two well-separated clusters: class 0 near the origin,
// class 1 near (5, 5). The second feature carries all the signal mirrored by
// the first; both are informative.
func separableData() (*mat.Dense, *mat.Dense) {
	var xs []float64
	var ys []float64
	for i := 0; i < 10; i++ {
		off := float64(i) * 0.1
		xs = append(xs, off, off)
		ys = append(ys, 0)
	}
	for i := 0; i < 10; i++ {
		off := float64(i) * 0.1
		xs = append(xs, 5+off, 5+off)
		ys = append(ys, 1)
	}
	X := mat.NewDense(20, 2, xs)
	y := mat.NewDense(20, 1, ys)
	return X, y
}

func TestEveryFamilySeparatesClusters(t *testing.T) {
	X, y := separableData()
	queries := mat.NewDense(2, 2, []float64{0.2, 0.2, 5.2, 5.2})

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			factory, err := Get(name)
			if err != nil {
				t.Fatal(err)
			}
			grid := factory.DefaultGrid(3, 2)
			if len(grid) != 3 {
				t.Fatalf("grid size = %d, want 3", len(grid))
			}

			clf, err := factory.New(grid[0], random.NewSource(1))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := clf.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			if !clf.IsFitted() {
				t.Fatal("IsFitted is false after Fit")
			}

			pred, err := clf.Predict(queries)
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if got := int(pred.At(0, 0)); got != 0 {
				t.Errorf("query near origin predicted class %d, want 0", got)
			}
			if got := int(pred.At(1, 0)); got != 1 {
				t.Errorf("query near (5,5) predicted class %d, want 1", got)
			}

			proba, err := clf.PredictProba(queries)
			if err != nil {
				t.Fatalf("PredictProba failed: %v", err)
			}
			rows, cols := proba.Dims()
			if rows != 2 || cols != 2 {
				t.Fatalf("proba dims = %dx%d, want 2x2", rows, cols)
			}
			for i := 0; i < rows; i++ {
				sum := 0.0
				for j := 0; j < cols; j++ {
					sum += proba.At(i, j)
				}
				if math.Abs(sum-1.0) > 1e-6 {
					t.Errorf("row %d probabilities sum to %v", i, sum)
				}
			}

			classes := clf.Classes()
			if len(classes) != 2 || classes[0] != 0 || classes[1] != 1 {
				t.Errorf("Classes() = %v, want [0 1]", classes)
			}
		})
	}
}

func TestRegistryKnowsAllFamilies(t *testing.T) {
	want := []string{"cart", "forest", "knn", "logistic", "nb"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}

	if _, err := Get("perceptron"); err == nil {
		t.Error("unknown family should be rejected")
	}
}

func TestPredictBeforeFit(t *testing.T) {
	X, _ := separableData()
	for _, name := range Names() {
		factory, _ := Get(name)
		clf, err := factory.New(Params{}, random.NewSource(1))
		if err != nil {
			t.Fatalf("%s: New with empty params failed: %v", name, err)
		}
		_, err = clf.Predict(X)
		var nfe *errors.NotFittedError
		if !errors.As(err, &nfe) {
			t.Errorf("%s: expected NotFittedError, got %v", name, err)
		}
	}
}

func TestTreeImportancesFavorInformativeFeature(t *testing.T) {
	// Feature 0 separates the classes; feature 1 is constant noise.
	var xs, ys []float64
	for i := 0; i < 10; i++ {
		xs = append(xs, float64(i), 1)
		if i < 5 {
			ys = append(ys, 0)
		} else {
			ys = append(ys, 1)
		}
	}
	X := mat.NewDense(10, 2, xs)
	y := mat.NewDense(10, 1, ys)

	tree := NewDecisionTree()
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	imp := tree.FeatureImportances()
	if imp[0] <= imp[1] {
		t.Errorf("importances = %v, want feature 0 dominant", imp)
	}
	sum := imp[0] + imp[1]
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
}

func TestForestDeterministicUnderSeed(t *testing.T) {
	X, y := separableData()
	queries := mat.NewDense(1, 2, []float64{2.5, 2.5})

	fit := func() float64 {
		factory, _ := Get("forest")
		clf, err := factory.New(Params{"trees": 15}, random.NewSource(99))
		if err != nil {
			t.Fatal(err)
		}
		if err := clf.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		proba, err := clf.PredictProba(queries)
		if err != nil {
			t.Fatal(err)
		}
		return proba.At(0, 0)
	}
	if a, b := fit(), fit(); a != b {
		t.Errorf("same seed produced different forests: %v vs %v", a, b)
	}
}

func TestLogisticRejectsSingleClass(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{0, 0, 0, 0})
	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err == nil {
		t.Error("single-class fit should fail")
	}
}

func TestParamsString(t *testing.T) {
	p := Params{"maxDepth": 5, "trees": 100}
	if got := p.String(); got != "maxDepth=5,trees=100" {
		t.Errorf("String() = %q", got)
	}
}

func TestKNNProbabilitiesAreVoteFractions(t *testing.T) {
	// 3 nearest neighbors of the query: two class-0 rows and one class-1 row.
	X := mat.NewDense(4, 1, []float64{0, 0.2, 0.4, 10})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	knn := NewKNNClassifier(3)
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	proba, err := knn.PredictProba(mat.NewDense(1, 1, []float64{0.1}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(proba.At(0, 0)-2.0/3.0) > 1e-9 || math.Abs(proba.At(0, 1)-1.0/3.0) > 1e-9 {
		t.Errorf("proba = [%v %v], want [2/3 1/3]", proba.At(0, 0), proba.At(0, 1))
	}
}
