package algorithm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/parallel"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

func init() {
	Register(knnFactory{})
}

type knnFactory struct{}

func (knnFactory) Name() string { return "knn" }

func (knnFactory) New(p Params, _ *random.Source) (model.Classifier, error) {
	k := p.GetInt("k", 5)
	if k < 1 {
		return nil, errors.NewValidationError("k", "neighbor count must be positive", k)
	}
	return NewKNNClassifier(k), nil
}

// DefaultGrid sweeps odd neighbor counts starting at 5. Odd counts avoid
// voting ties in the binary case.
func (knnFactory) DefaultGrid(tuneLength, _ int) []Params {
	if tuneLength < 1 {
		tuneLength = 3
	}
	grid := make([]Params, tuneLength)
	for i := 0; i < tuneLength; i++ {
		grid[i] = Params{"k": float64(5 + 2*i)}
	}
	return grid
}

// KNNClassifier predicts by majority vote among the K nearest training rows
// under Euclidean distance. Probabilities are vote fractions.
type KNNClassifier struct {
	State *model.StateManager

	K int

	// Learned state is the training data itself.
	Train     *mat.Dense
	Labels    []int
	ClassSet  []int
	NFeatures int
}

// NewKNNClassifier creates an unfitted classifier with k neighbors.
func NewKNNClassifier(k int) *KNNClassifier {
	return &KNNClassifier{State: model.NewStateManager(), K: k}
}

// Fit stores the training rows and labels.
func (knn *KNNClassifier) Fit(X, y mat.Matrix) error {
	if err := knn.State.RequireNotFitted("KNNClassifier"); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "KNNClassifier.Fit")
	}
	labels, classes, err := labelSlice(y)
	if err != nil {
		return err
	}
	if len(labels) != nSamples {
		return errors.NewDimensionError("KNNClassifier.Fit", nSamples, len(labels), 0)
	}

	knn.Train = mat.DenseCopyOf(X)
	knn.Labels = labels
	knn.ClassSet = classes
	knn.NFeatures = nFeatures
	knn.State.SetDimensions(nFeatures, nSamples)
	knn.State.SetFitted()
	return nil
}

// PredictProba returns per-class vote fractions among the k nearest training
// rows, columns ordered by Classes. Distance ties break toward the earlier
// training row for determinism.
func (knn *KNNClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := knn.State.RequireFitted("KNNClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != knn.NFeatures {
		return nil, errors.NewDimensionError("KNNClassifier.PredictProba", knn.NFeatures, nFeatures, 1)
	}

	classIdx := make(map[int]int, len(knn.ClassSet))
	for i, c := range knn.ClassSet {
		classIdx[c] = i
	}
	k := knn.K
	if k > len(knn.Labels) {
		k = len(knn.Labels)
	}

	Xd := denseX(X)
	trainRows, _ := knn.Train.Dims()
	out := mat.NewDense(nSamples, len(knn.ClassSet), nil)
	type cand struct {
		row  int
		dist float64
	}
	// Query rows are independent and write disjoint output rows.
	parallel.ParallelizeWithThreshold(nSamples, 64, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			cands := make([]cand, trainRows)
			for r := 0; r < trainRows; r++ {
				tr := knn.Train.RawRowView(r)
				sum := 0.0
				for j := range row {
					d := row[j] - tr[j]
					sum += d * d
				}
				cands[r] = cand{row: r, dist: math.Sqrt(sum)}
			}
			sort.Slice(cands, func(a, b int) bool {
				if cands[a].dist != cands[b].dist {
					return cands[a].dist < cands[b].dist
				}
				return cands[a].row < cands[b].row
			})
			for _, c := range cands[:k] {
				j := classIdx[knn.Labels[c.row]]
				out.Set(i, j, out.At(i, j)+1.0/float64(k))
			}
		}
	})
	return out, nil
}

// Predict returns the majority-vote class index per row.
func (knn *KNNClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictFromProba(knn, X)
}

// Classes returns the class indices seen during fitting.
func (knn *KNNClassifier) Classes() []int { return knn.ClassSet }

// IsFitted reports whether Fit has completed.
func (knn *KNNClassifier) IsFitted() bool { return knn.State.IsFitted() }
