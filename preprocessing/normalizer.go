package preprocessing

import (
	"math"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

// MinMaxNormalizer rescales each numeric feature by the training-set range:
// (x - min) / (max - min). Values outside the fit-time range legitimately map
// outside [0, 1]; unseen extremes in test data are information, so no
// clamping is applied. Constant features pass through with a unit scale.
type MinMaxNormalizer struct {
	State *model.StateManager

	Columns []string
	DataMin map[string]float64
	DataMax map[string]float64
	Scale   map[string]float64 // max - min, clamped to 1 for constant columns
}

// NewMinMaxNormalizer creates an unfitted range scaler.
func NewMinMaxNormalizer() *MinMaxNormalizer {
	return &MinMaxNormalizer{State: model.NewStateManager()}
}

// Name implements Stage.
func (m *MinMaxNormalizer) Name() string {
	return "MinMaxNormalizer"
}

// Fit records the training-set min and max per numeric feature.
func (m *MinMaxNormalizer) Fit(t *dataset.Table) error {
	if err := m.State.RequireNotFitted(m.Name()); err != nil {
		return err
	}
	if t.NumRows() == 0 || t.NumCols() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "MinMaxNormalizer.Fit")
	}

	m.Columns = t.ColumnNames()
	m.DataMin = make(map[string]float64)
	m.DataMax = make(map[string]float64)
	m.Scale = make(map[string]float64)

	for i := range t.Cols {
		c := &t.Cols[i]
		if c.Kind != dataset.Numeric {
			return errors.NewValidationError("column", "normalizer requires numeric columns; encode first", c.Name)
		}

		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, v := range c.Nums {
			if math.IsNaN(v) {
				return errors.NewValidationError("column", "missing value reached normalizer; impute first", c.Name)
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}

		m.DataMin[c.Name] = minV
		m.DataMax[c.Name] = maxV
		scale := maxV - minV
		if math.Abs(scale) < 1e-8 {
			scale = 1
		}
		m.Scale[c.Name] = scale
	}

	m.State.SetDimensions(t.NumCols(), t.NumRows())
	m.State.SetFitted()
	return nil
}

// Transform rescales every value by the frozen per-feature range.
func (m *MinMaxNormalizer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if err := m.State.RequireFitted(m.Name(), "Transform"); err != nil {
		return nil, err
	}
	if err := requireSameColumns("MinMaxNormalizer.Transform", m.Columns, t); err != nil {
		return nil, err
	}

	out := t.Clone()
	for i := range out.Cols {
		c := &out.Cols[i]
		minV := m.DataMin[c.Name]
		scale := m.Scale[c.Name]
		for j, v := range c.Nums {
			c.Nums[j] = (v - minV) / scale
		}
	}
	return out, nil
}
