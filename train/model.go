// Package train runs the cross-validated hyperparameter sweep: for each
// combination in the grid, fit one fresh classifier per fold, score it on the
// held-out rows, and refit the winning combination on the full training data.
// The held-out predictions of the winner are retained per row, so downstream
// stacking trains only on predictions made by models that never saw the row.
package train

import (
	"encoding/gob"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/resample"
)

func init() {
	gob.Register(&algorithm.LogisticRegression{})
	gob.Register(&algorithm.KNNClassifier{})
	gob.Register(&algorithm.DecisionTree{})
	gob.Register(&algorithm.RandomForest{})
	gob.Register(&algorithm.GaussianNB{})
}

// OOFPredictions holds the out-of-fold predictions of the winning combination.
// Every value for row i was produced by a fold model whose training set
// excluded row i. With repeated resampling the per-class probabilities are
// averaged across repeats.
type OOFPredictions struct {
	// Probas[i] is the averaged class-probability row, aligned with Classes
	// of the owning model. Nil when the row was never held out.
	Probas [][]float64

	// Labels[i] is the argmax class label, "" when the row was never held out.
	Labels []string

	// Scores[i] is the positive-class probability, NaN when uncovered.
	Scores []float64

	// Covered counts how many resamples held out each row.
	Covered []int
}

// TrainedModel is the final product of a sweep: the refit classifier, the
// feature layout it expects, and the cross-validation bookkeeping that
// selected it.
type TrainedModel struct {
	Algorithm string
	Params    algorithm.Params

	// Classifier is refit on the full training data with the winning
	// combination. Immutable after fit; safe for concurrent prediction.
	Classifier model.Classifier

	// Columns is the feature layout fixed at fit time. Prediction input must
	// match it exactly.
	Columns []string

	// Classes maps class indices to label strings, sorted ascending.
	Classes []string

	// Positive is the class used for threshold metrics and OOF scores.
	Positive string

	Metric     string
	CVScore    float64   // mean held-out metric of the winning combination
	FoldScores []float64 // defined per-fold scores of the winning combination

	Resampling resample.Spec
	OOF        *OOFPredictions
}

// classIndex returns the position of label in Classes, or -1.
func (tm *TrainedModel) classIndex(label string) int {
	for i, c := range tm.Classes {
		if c == label {
			return i
		}
	}
	return -1
}

// Predict returns the predicted label per row. The matrix layout must match
// the layout fixed at fit time.
func (tm *TrainedModel) Predict(m *dataset.Matrix) ([]string, error) {
	proba, err := tm.PredictProba(m)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(proba))
	for i, row := range proba {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = tm.Classes[best]
	}
	return out, nil
}

// PredictProba returns per-row class probabilities aligned with Classes.
func (tm *TrainedModel) PredictProba(m *dataset.Matrix) ([][]float64, error) {
	if err := m.RequireLayout("TrainedModel.PredictProba", tm.Columns); err != nil {
		return nil, err
	}
	proba, err := tm.Classifier.PredictProba(m.Data)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	if k != len(tm.Classes) {
		return nil, errors.NewDimensionError("TrainedModel.PredictProba", len(tm.Classes), k, 1)
	}
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = proba.At(i, j)
		}
		out[i] = row
	}
	return out, nil
}

// PositiveScores returns the positive-class probability per row.
func (tm *TrainedModel) PositiveScores(m *dataset.Matrix) ([]float64, error) {
	proba, err := tm.PredictProba(m)
	if err != nil {
		return nil, err
	}
	p := tm.classIndex(tm.Positive)
	if p < 0 {
		return nil, errors.NewValidationError("positive", "class not in model domain", tm.Positive)
	}
	out := make([]float64, len(proba))
	for i, row := range proba {
		out[i] = row[p]
	}
	return out, nil
}

// Save writes the model artifact to path using gob encoding.
func (tm *TrainedModel) Save(path string) error {
	return model.SaveModel(tm, path)
}

// LoadTrainedModel reads a model artifact from path.
func LoadTrainedModel(path string) (*TrainedModel, error) {
	tm := &TrainedModel{}
	if err := model.LoadModel(tm, path); err != nil {
		return nil, err
	}
	return tm, nil
}
