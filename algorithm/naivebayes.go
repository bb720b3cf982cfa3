package algorithm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

func init() {
	Register(nbFactory{})
}

type nbFactory struct{}

func (nbFactory) Name() string { return "nb" }

func (nbFactory) New(p Params, _ *random.Source) (model.Classifier, error) {
	nb := NewGaussianNB()
	nb.Smoothing = p.Get("smoothing", nb.Smoothing)
	if nb.Smoothing <= 0 {
		return nil, errors.NewValidationError("smoothing", "variance smoothing must be positive", nb.Smoothing)
	}
	return nb, nil
}

// DefaultGrid sweeps the variance smoothing over a log scale.
func (nbFactory) DefaultGrid(tuneLength, _ int) []Params {
	if tuneLength < 1 {
		tuneLength = 3
	}
	grid := make([]Params, tuneLength)
	for i := 0; i < tuneLength; i++ {
		grid[i] = Params{"smoothing": math.Pow(10, float64(-9+i*2))}
	}
	return grid
}

// GaussianNB models each feature as an independent per-class Gaussian.
// Smoothing adds a fraction of the largest feature variance to every variance
// so constant features do not produce degenerate densities.
type GaussianNB struct {
	State *model.StateManager

	Smoothing float64

	// Learned parameters, all indexed class x feature.
	Mean     [][]float64
	Variance [][]float64
	Prior    []float64 // log class priors

	ClassSet  []int
	NFeatures int
}

// NewGaussianNB creates an unfitted classifier.
func NewGaussianNB() *GaussianNB {
	return &GaussianNB{State: model.NewStateManager(), Smoothing: 1e-9}
}

// Fit estimates per-class feature means, variances and log priors.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if err := nb.State.RequireNotFitted("GaussianNB"); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GaussianNB.Fit")
	}
	labels, classes, err := labelSlice(y)
	if err != nil {
		return err
	}
	nb.ClassSet = classes
	nb.NFeatures = nFeatures
	k := len(classes)

	classIdx := make(map[int]int, k)
	for i, c := range classes {
		classIdx[c] = i
	}

	Xd := denseX(X)
	counts := make([]float64, k)
	nb.Mean = make([][]float64, k)
	nb.Variance = make([][]float64, k)
	nb.Prior = make([]float64, k)
	for c := 0; c < k; c++ {
		nb.Mean[c] = make([]float64, nFeatures)
		nb.Variance[c] = make([]float64, nFeatures)
	}

	for i := 0; i < nSamples; i++ {
		c := classIdx[labels[i]]
		counts[c]++
		for j, v := range Xd.RawRowView(i) {
			nb.Mean[c][j] += v
		}
	}
	for c := 0; c < k; c++ {
		for j := range nb.Mean[c] {
			nb.Mean[c][j] /= counts[c]
		}
	}
	for i := 0; i < nSamples; i++ {
		c := classIdx[labels[i]]
		for j, v := range Xd.RawRowView(i) {
			d := v - nb.Mean[c][j]
			nb.Variance[c][j] += d * d
		}
	}

	// The smoothing floor scales with the largest overall variance, matching
	// the usual Gaussian NB formulation.
	maxVar := 0.0
	for c := 0; c < k; c++ {
		for j := range nb.Variance[c] {
			nb.Variance[c][j] /= counts[c]
			if nb.Variance[c][j] > maxVar {
				maxVar = nb.Variance[c][j]
			}
		}
	}
	floor := nb.Smoothing
	if maxVar > 0 {
		floor = nb.Smoothing * maxVar
	}
	for c := 0; c < k; c++ {
		for j := range nb.Variance[c] {
			nb.Variance[c][j] += floor
		}
		nb.Prior[c] = math.Log(counts[c] / float64(nSamples))
	}

	nb.State.SetDimensions(nFeatures, nSamples)
	nb.State.SetFitted()
	return nil
}

// PredictProba returns normalized class posteriors per row.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.State.RequireFitted("GaussianNB", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.NFeatures {
		return nil, errors.NewDimensionError("GaussianNB.PredictProba", nb.NFeatures, nFeatures, 1)
	}

	Xd := denseX(X)
	k := len(nb.ClassSet)
	out := mat.NewDense(nSamples, k, nil)
	logPost := make([]float64, k)
	for i := 0; i < nSamples; i++ {
		row := Xd.RawRowView(i)
		for c := 0; c < k; c++ {
			ll := nb.Prior[c]
			for j, v := range row {
				d := v - nb.Mean[c][j]
				ll -= 0.5*math.Log(2*math.Pi*nb.Variance[c][j]) + d*d/(2*nb.Variance[c][j])
			}
			logPost[c] = ll
		}
		softmax(logPost)
		out.SetRow(i, logPost)
	}
	return out, nil
}

// Predict returns the class with the highest posterior per row.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictFromProba(nb, X)
}

// Classes returns the class indices seen during fitting.
func (nb *GaussianNB) Classes() []int { return nb.ClassSet }

// IsFitted reports whether Fit has completed.
func (nb *GaussianNB) IsFitted() bool { return nb.State.IsFitted() }
