package algorithm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

func init() {
	Register(logisticFactory{})
}

type logisticFactory struct{}

func (logisticFactory) Name() string { return "logistic" }

func (logisticFactory) New(p Params, src *random.Source) (model.Classifier, error) {
	lr := NewLogisticRegression()
	lr.Lambda = p.Get("lambda", 0)
	lr.MaxIter = p.GetInt("maxIter", lr.MaxIter)
	lr.Tol = p.Get("tol", lr.Tol)
	if lr.Lambda < 0 {
		return nil, errors.NewValidationError("lambda", "regularization strength must be non-negative", lr.Lambda)
	}
	lr.src = src
	return lr, nil
}

// DefaultGrid sweeps the L2 strength over a log scale ending at 1.
func (logisticFactory) DefaultGrid(tuneLength, _ int) []Params {
	if tuneLength < 1 {
		tuneLength = 3
	}
	grid := make([]Params, tuneLength)
	for i := 0; i < tuneLength; i++ {
		grid[i] = Params{"lambda": math.Pow(10, float64(i-tuneLength+1))}
	}
	return grid
}

// LogisticRegression is a multinomial softmax classifier trained by batch
// gradient descent with optional L2 regularization. Two classes reduce to the
// usual sigmoid model.
type LogisticRegression struct {
	State *model.StateManager

	// Hyperparameters
	Lambda  float64 // L2 strength, 0 disables regularization
	MaxIter int
	Tol     float64 // stop when the largest gradient entry falls below this

	// Learned parameters
	Coef      [][]float64 // n_classes x n_features
	Intercept []float64   // n_classes
	ClassSet  []int       // distinct class indices, ascending
	NFeatures int

	src *random.Source
}

// NewLogisticRegression creates an unfitted classifier with the defaults used
// throughout the grid sweep.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		State:   model.NewStateManager(),
		MaxIter: 200,
		Tol:     1e-4,
	}
}

// Fit trains the softmax weights. Labels in y are class indices (n x 1).
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.State.RequireNotFitted("LogisticRegression"); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	yRows, _ := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}

	labels, classes, err := labelSlice(y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewInsufficientDataError("LogisticRegression.Fit", "", len(classes), 2)
	}
	lr.ClassSet = classes
	lr.NFeatures = nFeatures
	k := len(classes)

	classIdx := make(map[int]int, k)
	for i, c := range classes {
		classIdx[c] = i
	}

	lr.Coef = make([][]float64, k)
	lr.Intercept = make([]float64, k)
	for c := range lr.Coef {
		lr.Coef[c] = make([]float64, nFeatures)
		if lr.src != nil {
			for j := range lr.Coef[c] {
				lr.Coef[c][j] = lr.src.NormFloat64() * 0.01
			}
		}
	}

	Xd := denseX(X)
	probs := make([]float64, k)
	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, nFeatures)
	}
	gradB := make([]float64, k)

	for iter := 0; iter < lr.MaxIter; iter++ {
		for c := range gradW {
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
			gradB[c] = 0
		}

		for i := 0; i < nSamples; i++ {
			row := Xd.RawRowView(i)
			lr.scores(row, probs)
			softmax(probs)
			target := classIdx[labels[i]]
			for c := 0; c < k; c++ {
				diff := probs[c]
				if c == target {
					diff -= 1
				}
				gradB[c] += diff
				for j, x := range row {
					gradW[c][j] += diff * x
				}
			}
		}

		maxGrad := 0.0
		rate := 1.0 / (1.0 + 0.1*float64(iter))
		for c := 0; c < k; c++ {
			gb := gradB[c] / float64(nSamples)
			lr.Intercept[c] -= rate * gb
			if math.Abs(gb) > maxGrad {
				maxGrad = math.Abs(gb)
			}
			for j := range gradW[c] {
				g := gradW[c][j]/float64(nSamples) + lr.Lambda*lr.Coef[c][j]
				lr.Coef[c][j] -= rate * g
				if math.Abs(g) > maxGrad {
					maxGrad = math.Abs(g)
				}
			}
		}

		if math.IsNaN(maxGrad) || math.IsInf(maxGrad, 0) {
			return errors.NewConvergenceFailure("logistic",
				map[string]interface{}{"lambda": lr.Lambda, "iter": iter},
				errors.New("gradient diverged"))
		}
		if maxGrad < lr.Tol {
			break
		}
	}

	lr.State.SetDimensions(nFeatures, nSamples)
	lr.State.SetFitted()
	return nil
}

// scores writes the raw class scores for one row into out.
func (lr *LogisticRegression) scores(row []float64, out []float64) {
	for c := range lr.Coef {
		z := lr.Intercept[c]
		for j, x := range row {
			z += lr.Coef[c][j] * x
		}
		out[c] = z
	}
}

// softmax normalizes scores into probabilities in place, shifted by the max
// for numerical stability.
func softmax(z []float64) {
	max := z[0]
	for _, v := range z[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for i, v := range z {
		z[i] = math.Exp(v - max)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

// PredictProba returns class probabilities, columns ordered by Classes.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.State.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.NFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.NFeatures, nFeatures, 1)
	}
	Xd := denseX(X)
	k := len(lr.ClassSet)
	out := mat.NewDense(nSamples, k, nil)
	probs := make([]float64, k)
	for i := 0; i < nSamples; i++ {
		lr.scores(Xd.RawRowView(i), probs)
		softmax(probs)
		out.SetRow(i, probs)
	}
	return out, nil
}

// Predict returns the most probable class index per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictFromProba(lr, X)
}

// Classes returns the class indices seen during fitting.
func (lr *LogisticRegression) Classes() []int { return lr.ClassSet }

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool { return lr.State.IsFitted() }

// FeatureImportances ranks features by the mean absolute coefficient across
// classes.
func (lr *LogisticRegression) FeatureImportances() []float64 {
	out := make([]float64, lr.NFeatures)
	for _, row := range lr.Coef {
		for j, w := range row {
			out[j] += math.Abs(w)
		}
	}
	for j := range out {
		out[j] /= float64(len(lr.Coef))
	}
	return out
}
