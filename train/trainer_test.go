package train

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/resample"
)

// trainMatrix builds 40 rows in two separated clusters: "neg" near the
// origin, "pos" near (4, 4).
func trainMatrix() *dataset.Matrix {
	data := mat.NewDense(40, 2, nil)
	labels := make([]string, 40)
	for i := 0; i < 20; i++ {
		off := float64(i) * 0.05
		data.Set(i, 0, off)
		data.Set(i, 1, off)
		labels[i] = "neg"
	}
	for i := 20; i < 40; i++ {
		off := float64(i-20) * 0.05
		data.Set(i, 0, 4+off)
		data.Set(i, 1, 4+off)
		labels[i] = "pos"
	}
	return &dataset.Matrix{Columns: []string{"f1", "f2"}, Data: data, Labels: labels}
}

func newProvider(t *testing.T) log.LoggerProvider {
	t.Helper()
	provider, _ := log.NewTestLoggerProvider(log.LevelWarn)
	return provider
}

func fiveFold() resample.Spec {
	return resample.Spec{Method: resample.MethodKFold, Folds: 5, Stratify: true}
}

func TestTrainerSelectsAndRefits(t *testing.T) {
	tr, err := New(Config{Algorithm: "knn", Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	m := trainMatrix()
	tm, err := tr.Fit(context.Background(), m, random.NewSource(5))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if tm.Metric != "auc" {
		t.Errorf("default binary metric = %q, want auc", tm.Metric)
	}
	if tm.Positive != "neg" {
		t.Errorf("default positive = %q, want first sorted class", tm.Positive)
	}
	if tm.CVScore < 0.95 {
		t.Errorf("CV score = %v on separable data", tm.CVScore)
	}
	if !tm.Classifier.IsFitted() {
		t.Error("final classifier not refit")
	}

	pred, err := tm.Predict(m)
	if err != nil {
		t.Fatal(err)
	}
	wrong := 0
	for i, p := range pred {
		if p != m.Labels[i] {
			wrong++
		}
	}
	if wrong > 2 {
		t.Errorf("%d/40 training rows misclassified", wrong)
	}
}

func TestOutOfFoldCoverage(t *testing.T) {
	tr, err := New(Config{
		Algorithm:  "cart",
		Resampling: resample.Spec{Method: resample.MethodRepeatedKFold, Folds: 5, Repeats: 3, Stratify: true},
	}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	m := trainMatrix()
	tm, err := tr.Fit(context.Background(), m, random.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}

	for r := 0; r < m.NumRows(); r++ {
		if tm.OOF.Covered[r] != 3 {
			t.Errorf("row %d held out %d times, want 3 (once per repeat)", r, tm.OOF.Covered[r])
		}
		if tm.OOF.Labels[r] == "" || math.IsNaN(tm.OOF.Scores[r]) {
			t.Errorf("row %d has no out-of-fold prediction", r)
		}
		if len(tm.OOF.Probas[r]) != 2 {
			t.Errorf("row %d probas = %v", r, tm.OOF.Probas[r])
		}
	}
}

func TestTrainerDeterministicUnderSeed(t *testing.T) {
	run := func() float64 {
		tr, err := New(Config{Algorithm: "forest", Resampling: fiveFold(),
			Grid: []algorithm.Params{{"trees": 11}}}, newProvider(t))
		if err != nil {
			t.Fatal(err)
		}
		tm, err := tr.Fit(context.Background(), trainMatrix(), random.NewSource(77))
		if err != nil {
			t.Fatal(err)
		}
		return tm.CVScore
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed gave different CV scores: %v vs %v", a, b)
	}
}

func TestTrainerHonorsFixedGrid(t *testing.T) {
	grid := []algorithm.Params{{"k": 3}, {"k": 7}}
	tr, err := New(Config{Algorithm: "knn", Grid: grid, Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	tm, err := tr.Fit(context.Background(), trainMatrix(), random.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}
	if k := tm.Params.GetInt("k", 0); k != 3 && k != 7 {
		t.Errorf("winner k = %d, not from the fixed grid", k)
	}
}

func TestTrainerExcludesFoldsMissingPositiveClass(t *testing.T) {
	// Under leave-one-out every negative singleton fold has no positive row
	// in either actual or predicted labels. Recall is undefined there; those
	// folds must be excluded from the mean, not fail the combination.
	tr, err := New(Config{
		Algorithm:  "knn",
		Grid:       []algorithm.Params{{"k": 3}},
		Resampling: resample.Spec{Method: resample.MethodLeaveOneOut},
		Metric:     "recall",
		Positive:   "pos",
	}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	m := trainMatrix()
	tm, err := tr.Fit(context.Background(), m, random.NewSource(5))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if math.IsNaN(tm.CVScore) {
		t.Error("CV score is NaN despite defined positive folds")
	}
	// Only the 20 positive singleton folds define recall.
	if len(tm.FoldScores) != 20 {
		t.Errorf("defined folds = %d, want 20", len(tm.FoldScores))
	}
	if tm.CVScore < 0.95 {
		t.Errorf("recall = %v on separable data", tm.CVScore)
	}
}

func TestTrainerAllCombinationsFail(t *testing.T) {
	grid := []algorithm.Params{{"k": -1}, {"k": -2}}
	tr, err := New(Config{Algorithm: "knn", Grid: grid, Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.Fit(context.Background(), trainMatrix(), random.NewSource(5))
	if !errors.Is(err, errors.ErrNoSuccessfulFit) {
		t.Fatalf("expected ErrNoSuccessfulFit, got %v", err)
	}
}

func TestTrainerCancellation(t *testing.T) {
	tr, err := New(Config{Algorithm: "knn", Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Fit(ctx, trainMatrix(), random.NewSource(5))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTrainerRejectsAUCForMulticlass(t *testing.T) {
	m := trainMatrix()
	labels := append([]string(nil), m.Labels...)
	labels[0], labels[1] = "third", "third"
	m3 := &dataset.Matrix{Columns: m.Columns, Data: m.Data, Labels: labels}

	tr, err := New(Config{Algorithm: "knn", Metric: "auc", Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.Fit(context.Background(), m3, random.NewSource(5))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTrainerUnknownAlgorithm(t *testing.T) {
	_, err := New(Config{Algorithm: "svm"}, newProvider(t))
	if err == nil {
		t.Fatal("unknown algorithm should be rejected at construction")
	}
}

func TestTrainedModelLayoutGuard(t *testing.T) {
	tr, err := New(Config{Algorithm: "nb", Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	m := trainMatrix()
	tm, err := tr.Fit(context.Background(), m, random.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}

	other := &dataset.Matrix{Columns: []string{"f2", "f1"}, Data: m.Data, Labels: m.Labels}
	_, err = tm.Predict(other)
	var lme *errors.FeatureLayoutMismatchError
	if !errors.As(err, &lme) {
		t.Fatalf("expected FeatureLayoutMismatchError, got %v", err)
	}
}

func TestTrainedModelPersistenceRoundTrip(t *testing.T) {
	tr, err := New(Config{Algorithm: "cart", Resampling: fiveFold()}, newProvider(t))
	if err != nil {
		t.Fatal(err)
	}
	m := trainMatrix()
	tm, err := tr.Fit(context.Background(), m, random.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := tm.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadTrainedModel(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want, err := tm.Predict(m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Predict(m)
	if err != nil {
		t.Fatalf("loaded model Predict failed: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("loaded model disagrees at row %d: %s vs %s", i, want[i], got[i])
		}
	}
	if loaded.Algorithm != "cart" || loaded.Metric != tm.Metric {
		t.Error("loaded model lost its sweep bookkeeping")
	}
}

func TestCompareOrdersByMean(t *testing.T) {
	a := &TrainedModel{Algorithm: "a", Metric: "auc", FoldScores: []float64{0.7, 0.8, 0.9}}
	b := &TrainedModel{Algorithm: "b", Metric: "auc", FoldScores: []float64{0.95, 0.93}}
	empty := &TrainedModel{Algorithm: "c", Metric: "auc"}

	comps := Compare([]*TrainedModel{a, b, empty})
	if len(comps) != 2 {
		t.Fatalf("got %d comparisons, want 2 (empty model excluded)", len(comps))
	}
	if comps[0].Algorithm != "b" {
		t.Errorf("best model = %s, want b", comps[0].Algorithm)
	}
	if math.Abs(comps[1].Mean-0.8) > 1e-9 {
		t.Errorf("mean = %v, want 0.8", comps[1].Mean)
	}
	if comps[1].Min != 0.7 || comps[1].Max != 0.9 {
		t.Errorf("min/max = %v/%v", comps[1].Min, comps[1].Max)
	}

	if s := Summary(comps); len(s) == 0 {
		t.Error("empty summary")
	}
}
