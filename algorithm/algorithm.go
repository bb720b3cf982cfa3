// Package algorithm implements the classifier families available to the
// trainer: logistic regression, k-nearest neighbors, a CART decision tree, a
// random forest and Gaussian naive Bayes.
//
// Each family registers a Factory. The trainer sweeps hyperparameter
// combinations by asking the factory for a default grid and building a fresh
// unfitted classifier per fold, so no state ever leaks between folds.
package algorithm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

// Params is one hyperparameter combination. Values are float64 across the
// board; integer-valued parameters are stored as whole floats.
type Params map[string]float64

// Get returns the parameter value or the given default when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// GetInt returns the parameter as an int or the given default when absent.
func (p Params) GetInt(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders the combination with sorted keys for stable logging.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%g", k, p[k])
	}
	return s
}

// Factory builds unfitted classifiers of one family.
type Factory interface {
	// Name is the registry key, e.g. "logistic" or "forest".
	Name() string

	// New returns an unfitted classifier configured with the combination.
	// Stochastic families draw from src; deterministic ones ignore it.
	New(p Params, src *random.Source) (model.Classifier, error)

	// DefaultGrid generates tuneLength combinations for the sweep, scaled to
	// the feature count where the family's parameters depend on it.
	DefaultGrid(tuneLength, nFeatures int) []Params
}

// Importancer is implemented by classifiers that can rank features. The
// feature selector requires it; other callers may ignore it.
type Importancer interface {
	FeatureImportances() []float64
}

var registry = make(map[string]Factory)

// Register adds a factory under its name. Called from init in each family's
// file; duplicate names panic since they indicate a programming error.
func Register(f Factory) {
	if _, dup := registry[f.Name()]; dup {
		panic("algorithm: duplicate registration of " + f.Name())
	}
	registry[f.Name()] = f
}

// Get returns the factory registered under name.
func Get(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.NewValidationError("algorithm", "unknown algorithm", name)
	}
	return f, nil
}

// Names lists the registered families in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// denseX copies X into a Dense for row-wise access.
func denseX(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

// labelSlice extracts y (n x 1) as class indices, along with the sorted set of
// distinct classes present.
func labelSlice(y mat.Matrix) ([]int, []int, error) {
	n, c := y.Dims()
	if c != 1 {
		return nil, nil, errors.NewDimensionError("algorithm.labelSlice", 1, c, 1)
	}
	labels := make([]int, n)
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		labels[i] = int(y.At(i, 0))
		seen[labels[i]] = true
	}
	classes := make([]int, 0, len(seen))
	for cl := range seen {
		classes = append(classes, cl)
	}
	sort.Ints(classes)
	return labels, classes, nil
}

// argmaxRow returns the column index with the largest value in row i.
func argmaxRow(m *mat.Dense, i int) int {
	_, cols := m.Dims()
	best, bestV := 0, m.At(i, 0)
	for j := 1; j < cols; j++ {
		if v := m.At(i, j); v > bestV {
			best, bestV = j, v
		}
	}
	return best
}

// predictFromProba derives the label matrix by row-wise argmax over class
// probabilities.
func predictFromProba(c model.Classifier, X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	p := denseX(proba)
	n, _ := p.Dims()
	classes := c.Classes()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, float64(classes[argmaxRow(p, i)]))
	}
	return out, nil
}
