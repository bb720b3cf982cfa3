package preprocessing

import (
	"sort"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

// EncodePolicy controls how the encoder treats apply-time categories that were
// not observed during fit. The policy is explicit configuration, never an
// implicit default buried in the transform.
type EncodePolicy int

const (
	// EncodeLenient maps an unseen category to an all-zero indicator row.
	EncodeLenient EncodePolicy = iota
	// EncodeStrict fails with an UnseenCategoryError.
	EncodeStrict
)

// OneHotEncoder expands each categorical feature into one binary column per
// category observed at fit time. The output column set and order are frozen by
// Fit: numeric columns pass through in table order, each categorical column is
// replaced in place by its "feature=category" indicators with categories
// sorted lexicographically. Apply-time data never extends the column set.
type OneHotEncoder struct {
	State  *model.StateManager
	Policy EncodePolicy

	Columns    []string            // fit-time input layout
	Categories map[string][]string // per categorical feature, sorted
	OutColumns []string            // frozen output layout
}

// NewOneHotEncoder creates an encoder with the given unseen-category policy.
func NewOneHotEncoder(policy EncodePolicy) *OneHotEncoder {
	return &OneHotEncoder{
		State:  model.NewStateManager(),
		Policy: policy,
	}
}

// Name implements Stage.
func (e *OneHotEncoder) Name() string {
	return "OneHotEncoder"
}

// Fit enumerates the distinct categories per categorical feature and freezes
// the output column layout.
func (e *OneHotEncoder) Fit(t *dataset.Table) error {
	if err := e.State.RequireNotFitted(e.Name()); err != nil {
		return err
	}
	if t.NumRows() == 0 || t.NumCols() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OneHotEncoder.Fit")
	}

	e.Columns = t.ColumnNames()
	e.Categories = make(map[string][]string)
	e.OutColumns = nil

	for i := range t.Cols {
		c := &t.Cols[i]
		if c.Kind == dataset.Numeric {
			e.OutColumns = append(e.OutColumns, c.Name)
			continue
		}
		seen := make(map[string]bool)
		for _, v := range c.Cats {
			if v != "" {
				seen[v] = true
			}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[c.Name] = cats
		for _, v := range cats {
			e.OutColumns = append(e.OutColumns, c.Name+"="+v)
		}
	}

	e.State.SetDimensions(len(e.OutColumns), t.NumRows())
	e.State.SetFitted()
	return nil
}

// Transform produces an all-numeric table in the frozen layout.
func (e *OneHotEncoder) Transform(t *dataset.Table) (*dataset.Table, error) {
	if err := e.State.RequireFitted(e.Name(), "Transform"); err != nil {
		return nil, err
	}
	if err := requireSameColumns("OneHotEncoder.Transform", e.Columns, t); err != nil {
		return nil, err
	}

	n := t.NumRows()
	out := make([]dataset.Column, 0, len(e.OutColumns))

	for i := range t.Cols {
		c := &t.Cols[i]
		if c.Kind == dataset.Numeric {
			out = append(out, dataset.Column{
				Name: c.Name,
				Kind: dataset.Numeric,
				Nums: append([]float64(nil), c.Nums...),
			})
			continue
		}

		cats := e.Categories[c.Name]
		catIdx := make(map[string]int, len(cats))
		for j, v := range cats {
			catIdx[v] = j
		}

		indicators := make([][]float64, len(cats))
		for j := range indicators {
			indicators[j] = make([]float64, n)
		}
		for row := 0; row < n; row++ {
			v := c.Cats[row]
			if v == "" {
				continue // missing encodes as all zeros
			}
			j, ok := catIdx[v]
			if !ok {
				if e.Policy == EncodeStrict {
					return nil, errors.NewUnseenCategoryError(c.Name, v)
				}
				continue // lenient: all-zero indicator row
			}
			indicators[j][row] = 1
		}
		for j, v := range cats {
			out = append(out, dataset.Column{
				Name: c.Name + "=" + v,
				Kind: dataset.Numeric,
				Nums: indicators[j],
			})
		}
	}

	return dataset.NewTable(t.LabelName, append([]string(nil), t.Labels...), out...)
}
