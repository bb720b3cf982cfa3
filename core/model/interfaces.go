package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator is the interface for anything that learns from a feature matrix
// and a label vector.
type Estimator interface {
	// Fit learns parameters from X (n_samples x n_features) and y (n_samples x 1).
	Fit(X, y mat.Matrix) error

	// IsFitted reports whether Fit has completed.
	IsFitted() bool
}

// Predictor is the interface for models that produce label predictions.
type Predictor interface {
	// Predict returns class indices as an n_samples x 1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines estimation, prediction and probability estimates.
type Classifier interface {
	Estimator
	Predictor

	// PredictProba returns an n_samples x n_classes matrix of class
	// probabilities, columns ordered by Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique class indices seen during fitting, ascending.
	Classes() []int
}
