package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/pkg/errors"
)

// Matrix is a table after all transform artifacts have been applied: a fixed,
// ordered set of numeric feature columns with the label column kept alongside
// but never inside the data. The column layout is the contract between a
// fitted pipeline and every downstream model.
type Matrix struct {
	Columns []string
	Data    *mat.Dense
	Labels  []string
}

// LayoutEquals reports whether the column set and order match exactly.
func (m *Matrix) LayoutEquals(columns []string) bool {
	if len(m.Columns) != len(columns) {
		return false
	}
	for i := range columns {
		if m.Columns[i] != columns[i] {
			return false
		}
	}
	return true
}

// RequireLayout returns a FeatureLayoutMismatchError when the matrix layout
// diverges from the expected columns. Layout errors are always fatal.
func (m *Matrix) RequireLayout(op string, columns []string) error {
	if !m.LayoutEquals(columns) {
		return errors.NewFeatureLayoutMismatchError(op, columns, m.Columns)
	}
	return nil
}

// NumRows returns the number of rows.
func (m *Matrix) NumRows() int {
	r, _ := m.Data.Dims()
	return r
}

// SelectRows returns a new Matrix with the given rows in the given order. The
// column layout is preserved.
func (m *Matrix) SelectRows(rows []int) *Matrix {
	_, c := m.Data.Dims()
	data := mat.NewDense(len(rows), c, nil)
	labels := make([]string, len(rows))
	for i, r := range rows {
		for j := 0; j < c; j++ {
			data.Set(i, j, m.Data.At(r, j))
		}
		labels[i] = m.Labels[r]
	}
	return &Matrix{Columns: m.Columns, Data: data, Labels: labels}
}

// SelectColumns returns a new Matrix keeping only the named columns, in the
// order given.
func (m *Matrix) SelectColumns(columns []string) (*Matrix, error) {
	idx := make(map[string]int, len(m.Columns))
	for i, name := range m.Columns {
		idx[name] = i
	}
	r, _ := m.Data.Dims()
	data := mat.NewDense(r, len(columns), nil)
	for j, name := range columns {
		src, ok := idx[name]
		if !ok {
			return nil, errors.NewValidationError("column", "not present in matrix", name)
		}
		for i := 0; i < r; i++ {
			data.Set(i, j, m.Data.At(i, src))
		}
	}
	return &Matrix{
		Columns: append([]string(nil), columns...),
		Data:    data,
		Labels:  m.Labels,
	}, nil
}

// LabelVector maps labels to class indices and returns them as an n x 1
// matrix, the shape estimators consume.
func (m *Matrix) LabelVector(classes []string) (*mat.Dense, error) {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	y := mat.NewDense(len(m.Labels), 1, nil)
	for i, l := range m.Labels {
		j, ok := idx[l]
		if !ok {
			return nil, errors.NewValidationError("label", "outside the fixed label domain", l)
		}
		y.Set(i, 0, float64(j))
	}
	return y, nil
}

// Matrix converts an all-numeric table into a Matrix. Categorical columns or
// remaining missing values are an error: encoding and imputation happen first.
func (t *Table) Matrix() (*Matrix, error) {
	n := t.NumRows()
	cols := t.NumCols()
	if n == 0 || cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.Table.Matrix")
	}

	data := mat.NewDense(n, cols, nil)
	for j := range t.Cols {
		c := &t.Cols[j]
		if c.Kind != Numeric {
			return nil, errors.NewValidationError("column", "categorical column cannot enter a feature matrix", c.Name)
		}
		for i := 0; i < n; i++ {
			if c.Missing(i) {
				return nil, errors.NewValidationError("column", "missing value survived imputation", c.Name)
			}
			data.Set(i, j, c.Nums[i])
		}
	}
	return &Matrix{
		Columns: t.ColumnNames(),
		Data:    data,
		Labels:  append([]string(nil), t.Labels...),
	}, nil
}
