package preprocessing

import (
	"math"
	"sort"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
)

// KNNImputer fills missing values from the k nearest training rows. Distances
// are Euclidean over the numeric features, jointly standardized with the
// training-set mean and standard deviation recorded at fit time. Categorical
// features are excluded from the distance by default; WithCategoricalDistance
// adds a 0/1 mismatch term per categorical feature instead.
//
// A missing numeric value becomes the mean of the neighbors' values, a missing
// categorical value their mode. When fewer than K usable neighbors exist the
// global column mean (numeric) or mode (categorical) learned from the training
// data is used instead. The artifact never refits on apply-time data.
type KNNImputer struct {
	State *model.StateManager

	// K is the neighbor count consulted per missing value.
	K int

	// UseCategorical includes categorical features as 0/1 mismatch terms in
	// the distance. Off by default: the numeric subspace alone defines
	// proximity.
	UseCategorical bool

	// Artifact learned at fit time.
	Columns    []string             // fit-time layout
	Mean       map[string]float64   // per numeric feature
	Std        map[string]float64   // per numeric feature, >= epsilon
	GlobalMode map[string]string    // per categorical feature
	TrainNums  map[string][]float64 // training values per numeric feature (raw)
	TrainCats  map[string][]string  // training values per categorical feature
	TrainRows  int
}

// KNNImputerOption configures a KNNImputer.
type KNNImputerOption func(*KNNImputer)

// WithCategoricalDistance includes categorical features in the neighbor
// distance as per-feature 0/1 mismatch terms.
func WithCategoricalDistance() KNNImputerOption {
	return func(im *KNNImputer) {
		im.UseCategorical = true
	}
}

// NewKNNImputer creates an imputer consulting k neighbors.
func NewKNNImputer(k int, opts ...KNNImputerOption) *KNNImputer {
	if k <= 0 {
		k = 5
	}
	im := &KNNImputer{
		State: model.NewStateManager(),
		K:     k,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Name implements Stage.
func (im *KNNImputer) Name() string {
	return "KNNImputer"
}

// Fit records per-feature standardization statistics, global fallbacks and the
// training rows that later serve as the neighbor pool.
func (im *KNNImputer) Fit(t *dataset.Table) error {
	if err := im.State.RequireNotFitted(im.Name()); err != nil {
		return err
	}
	if t.NumRows() == 0 || t.NumCols() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "KNNImputer.Fit")
	}

	im.Columns = t.ColumnNames()
	im.Mean = make(map[string]float64)
	im.Std = make(map[string]float64)
	im.GlobalMode = make(map[string]string)
	im.TrainNums = make(map[string][]float64)
	im.TrainCats = make(map[string][]string)
	im.TrainRows = t.NumRows()

	for i := range t.Cols {
		c := &t.Cols[i]
		if c.Kind == dataset.Numeric {
			mean, std := meanStd(c.Nums)
			im.Mean[c.Name] = mean
			im.Std[c.Name] = std
			im.TrainNums[c.Name] = append([]float64(nil), c.Nums...)
		} else {
			im.GlobalMode[c.Name] = mode(c.Cats)
			im.TrainCats[c.Name] = append([]string(nil), c.Cats...)
		}
	}

	im.State.SetDimensions(t.NumCols(), t.NumRows())
	im.State.SetFitted()
	return nil
}

// Transform returns a copy of t with every missing value filled in.
func (im *KNNImputer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if err := im.State.RequireFitted(im.Name(), "Transform"); err != nil {
		return nil, err
	}
	if err := requireSameColumns("KNNImputer.Transform", im.Columns, t); err != nil {
		return nil, err
	}

	out := t.Clone()
	for i := 0; i < out.NumRows(); i++ {
		for j := range out.Cols {
			c := &out.Cols[j]
			if !c.Missing(i) {
				continue
			}
			// Distances are computed from the original row, not from values
			// imputed earlier in the same pass.
			if c.Kind == dataset.Numeric {
				c.Nums[i] = im.imputeNumeric(t, i, c.Name)
			} else {
				c.Cats[i] = im.imputeCategorical(t, i, c.Name)
			}
		}
	}
	return out, nil
}

type neighbor struct {
	row  int
	dist float64
}

// nearest ranks training rows by distance to row i of t, keeping only rows
// where accept returns true (i.e. the target feature is present).
func (im *KNNImputer) nearest(t *dataset.Table, i int, accept func(trainRow int) bool) []neighbor {
	var candidates []neighbor
	for r := 0; r < im.TrainRows; r++ {
		if !accept(r) {
			continue
		}
		d, ok := im.distance(t, i, r)
		if !ok {
			continue
		}
		candidates = append(candidates, neighbor{row: r, dist: d})
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist < candidates[b].dist
		}
		return candidates[a].row < candidates[b].row
	})
	return candidates
}

// distance is Euclidean over the standardized numeric features present in
// both rows. Returns ok=false when the rows share no usable feature.
func (im *KNNImputer) distance(t *dataset.Table, i, trainRow int) (float64, bool) {
	sum := 0.0
	shared := 0
	for j := range t.Cols {
		c := &t.Cols[j]
		switch c.Kind {
		case dataset.Numeric:
			train := im.TrainNums[c.Name]
			if c.Missing(i) || math.IsNaN(train[trainRow]) {
				continue
			}
			std := im.Std[c.Name]
			a := (c.Nums[i] - im.Mean[c.Name]) / std
			b := (train[trainRow] - im.Mean[c.Name]) / std
			sum += (a - b) * (a - b)
			shared++
		case dataset.Categorical:
			if !im.UseCategorical {
				continue
			}
			train := im.TrainCats[c.Name]
			if c.Missing(i) || train[trainRow] == "" {
				continue
			}
			if c.Cats[i] != train[trainRow] {
				sum++
			}
			shared++
		}
	}
	if shared == 0 {
		return 0, false
	}
	return math.Sqrt(sum), true
}

func (im *KNNImputer) imputeNumeric(t *dataset.Table, i int, feature string) float64 {
	train := im.TrainNums[feature]
	neighbors := im.nearest(t, i, func(r int) bool {
		return !math.IsNaN(train[r])
	})
	if len(neighbors) < im.K {
		return im.Mean[feature]
	}
	sum := 0.0
	for _, n := range neighbors[:im.K] {
		sum += train[n.row]
	}
	return sum / float64(im.K)
}

func (im *KNNImputer) imputeCategorical(t *dataset.Table, i int, feature string) string {
	train := im.TrainCats[feature]
	neighbors := im.nearest(t, i, func(r int) bool {
		return train[r] != ""
	})
	if len(neighbors) < im.K {
		return im.GlobalMode[feature]
	}
	votes := make([]string, 0, im.K)
	for _, n := range neighbors[:im.K] {
		votes = append(votes, train[n.row])
	}
	return mode(votes)
}

// meanStd computes mean and standard deviation over non-missing values. A
// near-zero deviation is clamped to 1 to avoid division blowups on constant
// features.
func meanStd(values []float64) (float64, float64) {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 1
	}
	mean := sum / float64(n)

	sumSq := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(n))
	if std < 1e-8 {
		std = 1
	}
	return mean, std
}

// mode returns the most frequent non-missing value; ties break toward the
// lexicographically smaller value for determinism.
func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	best, bestCount := "", -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
