package algorithm

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

func init() {
	Register(cartFactory{})
}

type cartFactory struct{}

func (cartFactory) Name() string { return "cart" }

func (cartFactory) New(p Params, src *random.Source) (model.Classifier, error) {
	t := NewDecisionTree()
	t.MaxDepth = p.GetInt("maxDepth", t.MaxDepth)
	t.MinSplit = p.GetInt("minSplit", t.MinSplit)
	if t.MaxDepth < 1 {
		return nil, errors.NewValidationError("maxDepth", "tree depth must be positive", t.MaxDepth)
	}
	t.src = src
	return t, nil
}

// DefaultGrid sweeps the depth cap; deeper trees trade bias for variance.
func (cartFactory) DefaultGrid(tuneLength, _ int) []Params {
	if tuneLength < 1 {
		tuneLength = 3
	}
	grid := make([]Params, tuneLength)
	for i := 0; i < tuneLength; i++ {
		grid[i] = Params{"maxDepth": float64(3 + 2*i)}
	}
	return grid
}

// TreeNode is one node of a fitted tree. Leaves carry the class distribution
// of the training rows that reached them; internal nodes split on
// Feature < Threshold.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int // child index into Nodes, -1 on leaves
	Right     int
	Probs     []float64 // leaf distribution, nil on internal nodes
}

// DecisionTree is a CART classifier: binary splits chosen greedily by Gini
// impurity decrease, grown until MaxDepth, purity, or MinSplit stops it.
type DecisionTree struct {
	State *model.StateManager

	MaxDepth int
	MinSplit int // minimum rows required to attempt a split

	// Mtry limits each split to a random feature subset when positive; used
	// by the forest, zero for a standalone tree.
	Mtry int

	Nodes       []TreeNode
	ClassSet    []int
	NFeatures   int
	Importances []float64 // Gini decrease per feature, summed over splits

	src *random.Source
}

// NewDecisionTree creates an unfitted tree with the defaults used in sweeps.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{
		State:    model.NewStateManager(),
		MaxDepth: 7,
		MinSplit: 2,
	}
}

type treeBuilder struct {
	t        *DecisionTree
	X        *mat.Dense
	labels   []int
	classIdx map[int]int
	k        int
}

// Fit grows the tree from the training rows.
func (t *DecisionTree) Fit(X, y mat.Matrix) error {
	if err := t.State.RequireNotFitted("DecisionTree"); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTree.Fit")
	}
	labels, classes, err := labelSlice(y)
	if err != nil {
		return err
	}
	if len(labels) != nSamples {
		return errors.NewDimensionError("DecisionTree.Fit", nSamples, len(labels), 0)
	}

	t.ClassSet = classes
	t.NFeatures = nFeatures
	t.Importances = make([]float64, nFeatures)

	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	b := &treeBuilder{t: t, X: denseX(X), labels: labels, classIdx: classIdx, k: len(classes)}

	rows := make([]int, nSamples)
	for i := range rows {
		rows[i] = i
	}
	b.grow(rows, 0)

	t.State.SetDimensions(nFeatures, nSamples)
	t.State.SetFitted()
	return nil
}

// grow appends the subtree for rows and returns its node index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	counts := make([]float64, b.k)
	for _, r := range rows {
		counts[b.classIdx[b.labels[r]]]++
	}
	node := TreeNode{Left: -1, Right: -1}
	idx := len(b.t.Nodes)
	b.t.Nodes = append(b.t.Nodes, node)

	if depth >= b.t.MaxDepth || len(rows) < b.t.MinSplit || pure(counts) {
		b.t.Nodes[idx].Probs = normalize(counts, float64(len(rows)))
		return idx
	}

	feature, threshold, gain := b.bestSplit(rows, counts)
	if gain <= 0 {
		b.t.Nodes[idx].Probs = normalize(counts, float64(len(rows)))
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.X.At(r, feature) < threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	b.t.Importances[feature] += gain * float64(len(rows))

	b.t.Nodes[idx].Feature = feature
	b.t.Nodes[idx].Threshold = threshold
	b.t.Nodes[idx].Left = b.grow(left, depth+1)
	b.t.Nodes[idx].Right = b.grow(right, depth+1)
	return idx
}

// bestSplit scans candidate thresholds per feature and returns the split with
// the largest Gini impurity decrease.
func (b *treeBuilder) bestSplit(rows []int, parentCounts []float64) (int, float64, float64) {
	n := float64(len(rows))
	parentGini := gini(parentCounts, n)

	features := b.splitFeatures()
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	type pair struct {
		value float64
		class int
	}
	pairs := make([]pair, 0, len(rows))

	for _, f := range features {
		pairs = pairs[:0]
		for _, r := range rows {
			pairs = append(pairs, pair{value: b.X.At(r, f), class: b.classIdx[b.labels[r]]})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

		leftCounts := make([]float64, b.k)
		rightCounts := append([]float64(nil), parentCounts...)
		for i := 0; i < len(pairs)-1; i++ {
			leftCounts[pairs[i].class]++
			rightCounts[pairs[i].class]--
			if pairs[i].value == pairs[i+1].value {
				continue
			}
			nl, nr := float64(i+1), n-float64(i+1)
			gain := parentGini - (nl*gini(leftCounts, nl)+nr*gini(rightCounts, nr))/n
			if gain > bestGain {
				bestFeature = f
				bestThreshold = (pairs[i].value + pairs[i+1].value) / 2
				bestGain = gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

// splitFeatures returns the features eligible for this split: all of them, or
// a random Mtry-sized subset inside a forest.
func (b *treeBuilder) splitFeatures() []int {
	all := b.t.NFeatures
	if b.t.Mtry <= 0 || b.t.Mtry >= all || b.t.src == nil {
		out := make([]int, all)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := b.t.src.Perm(all)
	out := perm[:b.t.Mtry]
	sort.Ints(out)
	return out
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func pure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(counts []float64, n float64) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / n
	}
	return out
}

// PredictProba routes each row to its leaf and returns the leaf distribution.
func (t *DecisionTree) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.RequireFitted("DecisionTree", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTree.PredictProba", t.NFeatures, nFeatures, 1)
	}
	Xd := denseX(X)
	out := mat.NewDense(nSamples, len(t.ClassSet), nil)
	for i := 0; i < nSamples; i++ {
		node := 0
		for t.Nodes[node].Probs == nil {
			if Xd.At(i, t.Nodes[node].Feature) < t.Nodes[node].Threshold {
				node = t.Nodes[node].Left
			} else {
				node = t.Nodes[node].Right
			}
		}
		out.SetRow(i, t.Nodes[node].Probs)
	}
	return out, nil
}

// Predict returns the majority class of each row's leaf.
func (t *DecisionTree) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictFromProba(t, X)
}

// Classes returns the class indices seen during fitting.
func (t *DecisionTree) Classes() []int { return t.ClassSet }

// IsFitted reports whether Fit has completed.
func (t *DecisionTree) IsFitted() bool { return t.State.IsFitted() }

// FeatureImportances returns the normalized Gini decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(t.Importances))
	total := 0.0
	for _, v := range t.Importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range t.Importances {
		out[i] = v / total
	}
	return out
}
