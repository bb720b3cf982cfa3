// Package dataset defines the row-oriented data model consumed by the
// transform pipeline: ordered feature columns of mixed numeric and categorical
// kind, a separate label column, and missing values marked in-band (NaN for
// numerics, the empty string for categoricals). Labels are kept out of the
// feature columns so no transform stage can touch them.
package dataset

import (
	"math"
	"sort"

	"github.com/harukisato/tabstack/pkg/errors"
)

// Kind discriminates feature column types.
type Kind int

const (
	// Numeric columns hold float64 values; math.NaN() marks missing.
	Numeric Kind = iota
	// Categorical columns hold string values; "" marks missing.
	Categorical
)

// Column is a single named feature column. Exactly one of Nums or Cats is
// populated, matching Kind.
type Column struct {
	Name string
	Kind Kind
	Nums []float64
	Cats []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Cats)
}

// Missing reports whether the value at row i is missing.
func (c *Column) Missing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Nums[i])
	}
	return c.Cats[i] == ""
}

// Table is an ordered sequence of rows over named feature columns plus one
// label column. The label domain is fixed and known before training.
type Table struct {
	Cols      []Column
	Labels    []string
	LabelName string
}

// NewTable creates a table from columns and labels. All columns and the label
// slice must have the same length.
func NewTable(labelName string, labels []string, cols ...Column) (*Table, error) {
	for i := range cols {
		if cols[i].Len() != len(labels) {
			return nil, errors.NewDimensionError("dataset.NewTable", len(labels), cols[i].Len(), 0)
		}
	}
	return &Table{Cols: cols, Labels: labels, LabelName: labelName}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.Labels)
}

// NumCols returns the number of feature columns.
func (t *Table) NumCols() int {
	return len(t.Cols)
}

// ColumnNames returns feature column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Cols))
	for i := range t.Cols {
		names[i] = t.Cols[i].Name
	}
	return names
}

// Column returns the feature column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Cols {
		if t.Cols[i].Name == name {
			return &t.Cols[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.Cols))
	for i, c := range t.Cols {
		cols[i] = Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			cols[i].Nums = append([]float64(nil), c.Nums...)
		} else {
			cols[i].Cats = append([]string(nil), c.Cats...)
		}
	}
	return &Table{
		Cols:      cols,
		Labels:    append([]string(nil), t.Labels...),
		LabelName: t.LabelName,
	}
}

// Select returns a new table containing the given rows in the given order.
func (t *Table) Select(rows []int) *Table {
	cols := make([]Column, len(t.Cols))
	for i, c := range t.Cols {
		cols[i] = Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			cols[i].Nums = make([]float64, len(rows))
			for j, r := range rows {
				cols[i].Nums[j] = c.Nums[r]
			}
		} else {
			cols[i].Cats = make([]string, len(rows))
			for j, r := range rows {
				cols[i].Cats[j] = c.Cats[r]
			}
		}
	}
	labels := make([]string, len(rows))
	for j, r := range rows {
		labels[j] = t.Labels[r]
	}
	return &Table{Cols: cols, Labels: labels, LabelName: t.LabelName}
}

// SelectColumns returns a new table keeping only the named feature columns, in
// the order given. Labels are carried over unchanged.
func (t *Table) SelectColumns(names []string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c := t.Column(name)
		if c == nil {
			return nil, errors.NewValidationError("column", "not present in table", name)
		}
		cols = append(cols, *c)
	}
	return &Table{Cols: cols, Labels: t.Labels, LabelName: t.LabelName}, nil
}

// Classes returns the sorted distinct label values.
func (t *Table) Classes() []string {
	seen := make(map[string]bool)
	for _, l := range t.Labels {
		seen[l] = true
	}
	classes := make([]string, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// ClassCounts returns the number of rows per label value.
func (t *Table) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, l := range t.Labels {
		counts[l]++
	}
	return counts
}

// LabelIndices maps each row's label to its index in classes. A label absent
// from classes is an error: the label domain is fixed before training.
func (t *Table) LabelIndices(classes []string) ([]int, error) {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	out := make([]int, len(t.Labels))
	for i, l := range t.Labels {
		j, ok := idx[l]
		if !ok {
			return nil, errors.NewValidationError("label", "outside the fixed label domain", l)
		}
		out[i] = j
	}
	return out, nil
}
