package algorithm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/parallel"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

func init() {
	Register(forestFactory{})
}

type forestFactory struct{}

func (forestFactory) Name() string { return "forest" }

func (forestFactory) New(p Params, src *random.Source) (model.Classifier, error) {
	f := NewRandomForest()
	f.Trees = p.GetInt("trees", f.Trees)
	f.MaxDepth = p.GetInt("maxDepth", f.MaxDepth)
	f.Mtry = p.GetInt("mtry", 0)
	if f.Trees < 1 {
		return nil, errors.NewValidationError("trees", "tree count must be positive", f.Trees)
	}
	if src == nil {
		src = random.NewSource(0)
	}
	f.src = src
	return f, nil
}

// DefaultGrid sweeps mtry around sqrt(p), the usual forest default.
func (forestFactory) DefaultGrid(tuneLength, nFeatures int) []Params {
	if tuneLength < 1 {
		tuneLength = 3
	}
	base := int(math.Sqrt(float64(nFeatures)))
	if base < 1 {
		base = 1
	}
	grid := make([]Params, 0, tuneLength)
	for i := 0; i < tuneLength; i++ {
		mtry := base + i
		if mtry > nFeatures {
			mtry = nFeatures
		}
		grid = append(grid, Params{"mtry": float64(mtry)})
	}
	return grid
}

// RandomForest averages the class distributions of bagged CART trees, each
// grown on a bootstrap resample with a random feature subset per split.
type RandomForest struct {
	State *model.StateManager

	Trees    int
	MaxDepth int
	Mtry     int // 0 means sqrt of the feature count

	Members   []*DecisionTree
	ClassSet  []int
	NFeatures int

	src *random.Source
}

// NewRandomForest creates an unfitted forest with the defaults used in sweeps.
func NewRandomForest() *RandomForest {
	return &RandomForest{
		State:    model.NewStateManager(),
		Trees:    100,
		MaxDepth: 12,
	}
}

// Fit grows the trees concurrently. Each tree owns a child random stream, so
// the fitted forest does not depend on scheduling order.
func (f *RandomForest) Fit(X, y mat.Matrix) error {
	if err := f.State.RequireNotFitted("RandomForest"); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForest.Fit")
	}
	labels, classes, err := labelSlice(y)
	if err != nil {
		return err
	}
	f.ClassSet = classes
	f.NFeatures = nFeatures

	mtry := f.Mtry
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(nFeatures)))
		if mtry < 1 {
			mtry = 1
		}
	}

	Xd := denseX(X)
	f.Members = make([]*DecisionTree, f.Trees)
	errs := make([]error, f.Trees)
	parallel.Parallelize(f.Trees, func(start, end int) {
		for m := start; m < end; m++ {
			src := f.src.Child(uint64(m))
			tree := NewDecisionTree()
			tree.MaxDepth = f.MaxDepth
			tree.MinSplit = 2
			tree.Mtry = mtry
			tree.src = src

			bootX, bootY := bootstrapSample(Xd, labels, src)
			if err := tree.Fit(bootX, bootY); err != nil {
				errs[m] = err
				continue
			}
			f.Members[m] = tree
		}
	})
	for _, e := range errs {
		if e != nil {
			return errors.Wrap(e, "RandomForest.Fit")
		}
	}

	f.State.SetDimensions(nFeatures, nSamples)
	f.State.SetFitted()
	return nil
}

// bootstrapSample draws n rows with replacement.
func bootstrapSample(X *mat.Dense, labels []int, src *random.Source) (*mat.Dense, *mat.Dense) {
	n, cols := X.Dims()
	outX := mat.NewDense(n, cols, nil)
	outY := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		r := src.IntN(n)
		outX.SetRow(i, X.RawRowView(r))
		outY.Set(i, 0, float64(labels[r]))
	}
	return outX, outY
}

// PredictProba averages the member trees' leaf distributions. Trees that
// missed a class in their bootstrap contribute their probabilities under the
// forest's class ordering.
func (f *RandomForest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.State.RequireFitted("RandomForest", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != f.NFeatures {
		return nil, errors.NewDimensionError("RandomForest.PredictProba", f.NFeatures, nFeatures, 1)
	}

	classIdx := make(map[int]int, len(f.ClassSet))
	for i, c := range f.ClassSet {
		classIdx[c] = i
	}
	out := mat.NewDense(nSamples, len(f.ClassSet), nil)
	for _, tree := range f.Members {
		proba, err := tree.PredictProba(X)
		if err != nil {
			return nil, err
		}
		p := denseX(proba)
		for i := 0; i < nSamples; i++ {
			for j, c := range tree.ClassSet {
				col := classIdx[c]
				out.Set(i, col, out.At(i, col)+p.At(i, j))
			}
		}
	}
	out.Scale(1/float64(len(f.Members)), out)
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (f *RandomForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictFromProba(f, X)
}

// Classes returns the class indices seen during fitting.
func (f *RandomForest) Classes() []int { return f.ClassSet }

// IsFitted reports whether Fit has completed.
func (f *RandomForest) IsFitted() bool { return f.State.IsFitted() }

// FeatureImportances averages the member trees' normalized Gini importances.
func (f *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, f.NFeatures)
	for _, tree := range f.Members {
		for j, v := range tree.FeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Members))
	}
	return out
}
