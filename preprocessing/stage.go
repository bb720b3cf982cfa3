// Package preprocessing implements the transform stages of the training
// pipeline: k-nearest-neighbor imputation, one-hot encoding and range scaling.
//
// Every stage follows the same contract: Fit learns an immutable artifact from
// training data exactly once, Transform replays that artifact on any data
// without re-fitting. Transform is pure; applying the same artifact to the
// same data twice yields identical output.
package preprocessing

import (
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

// Stage is one fit-once, apply-many transform over tables.
type Stage interface {
	// Name identifies the stage in logs and errors.
	Name() string

	// Fit learns the stage artifact from training data. Calling Fit on an
	// already-fitted stage is an error; artifacts are frozen.
	Fit(t *dataset.Table) error

	// Transform applies the frozen artifact to any data. The input is not
	// modified.
	Transform(t *dataset.Table) (*dataset.Table, error)
}

// requireSameColumns verifies that the apply-time table carries exactly the
// fit-time feature columns, in order.
func requireSameColumns(op string, fitted []string, t *dataset.Table) error {
	got := t.ColumnNames()
	if len(got) != len(fitted) {
		return errors.NewFeatureLayoutMismatchError(op, fitted, got)
	}
	for i := range fitted {
		if got[i] != fitted[i] {
			return errors.NewFeatureLayoutMismatchError(op, fitted, got)
		}
	}
	return nil
}
