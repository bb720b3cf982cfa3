// Package metrics computes classification quality measures: confusion
// matrices, threshold metrics against a positive class, and ROC/AUC.
//
// Metrics that are undefined for the given data (a missing class, an empty
// denominator) return NaN together with an UndefinedMetricWarning rather than
// failing; callers exclude such values from aggregation.
package metrics

import (
	"math"
	"sort"

	"github.com/harukisato/tabstack/pkg/errors"
)

// ConfusionMatrix counts actual x predicted label pairs.
type ConfusionMatrix struct {
	// Classes is the sorted union of labels seen in actual and predicted.
	Classes []string

	// Counts[i][j] is the number of rows with actual Classes[i] predicted as
	// Classes[j].
	Counts [][]int

	n int
}

// NewConfusionMatrix tallies predictions against actual labels.
func NewConfusionMatrix(actual, predicted []string) (*ConfusionMatrix, error) {
	if len(actual) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "metrics.NewConfusionMatrix")
	}
	if len(actual) != len(predicted) {
		return nil, errors.NewDimensionError("metrics.NewConfusionMatrix", len(actual), len(predicted), 0)
	}

	seen := make(map[string]bool)
	for _, l := range actual {
		seen[l] = true
	}
	for _, l := range predicted {
		seen[l] = true
	}
	classes := make([]string, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	for i := range actual {
		counts[idx[actual[i]]][idx[predicted[i]]]++
	}
	return &ConfusionMatrix{Classes: classes, Counts: counts, n: len(actual)}, nil
}

// index returns the class position or -1.
func (cm *ConfusionMatrix) index(class string) int {
	for i, c := range cm.Classes {
		if c == class {
			return i
		}
	}
	return -1
}

// Binary collapses the matrix against one positive class.
type Binary struct {
	Positive       string
	TP, FP, FN, TN int
}

// Binary returns the one-vs-rest counts for the positive class. A positive
// class absent from both actual and predicted labels yields all-negative
// counts; the derived threshold metrics then report themselves undefined
// instead of failing, so a fold that never saw the class stays non-fatal.
func (cm *ConfusionMatrix) Binary(positive string) (Binary, error) {
	p := cm.index(positive)
	if p < 0 {
		return Binary{Positive: positive, TN: cm.n}, nil
	}
	b := Binary{Positive: positive}
	for i := range cm.Counts {
		for j, c := range cm.Counts[i] {
			switch {
			case i == p && j == p:
				b.TP += c
			case i == p:
				b.FN += c
			case j == p:
				b.FP += c
			default:
				b.TN += c
			}
		}
	}
	return b, nil
}

// Accuracy is the fraction of rows predicted correctly, over all classes.
func (cm *ConfusionMatrix) Accuracy() float64 {
	correct := 0
	for i := range cm.Counts {
		correct += cm.Counts[i][i]
	}
	return float64(correct) / float64(cm.n)
}

// Support returns the actual row count per class, aligned with Classes.
func (cm *ConfusionMatrix) Support() []int {
	out := make([]int, len(cm.Classes))
	for i := range cm.Counts {
		for _, c := range cm.Counts[i] {
			out[i] += c
		}
	}
	return out
}

// Precision is TP/(TP+FP). NaN with a warning when nothing was predicted
// positive.
func (b Binary) Precision() (float64, error) {
	if b.TP+b.FP == 0 {
		return math.NaN(), errors.NewUndefinedMetricWarning("precision", "no positive predictions")
	}
	return float64(b.TP) / float64(b.TP+b.FP), nil
}

// Recall is TP/(TP+FN). NaN with a warning when no positive rows exist.
func (b Binary) Recall() (float64, error) {
	if b.TP+b.FN == 0 {
		return math.NaN(), errors.NewUndefinedMetricWarning("recall", "no positive rows")
	}
	return float64(b.TP) / float64(b.TP+b.FN), nil
}

// F1 is the harmonic mean of precision and recall.
func (b Binary) F1() (float64, error) {
	p, err := b.Precision()
	if err != nil {
		return math.NaN(), err
	}
	r, err := b.Recall()
	if err != nil {
		return math.NaN(), err
	}
	if p+r == 0 {
		return math.NaN(), errors.NewUndefinedMetricWarning("f1", "precision and recall both zero")
	}
	return 2 * p * r / (p + r), nil
}

// Accuracy over the collapsed binary counts.
func (b Binary) Accuracy() float64 {
	total := b.TP + b.FP + b.FN + b.TN
	if total == 0 {
		return math.NaN()
	}
	return float64(b.TP+b.TN) / float64(total)
}

// Score computes a named metric from labels and positive-class scores. The
// scores are consulted only by "auc"; label metrics ignore them. An undefined
// metric returns NaN and an UndefinedMetricWarning.
func Score(metric string, actual, predicted []string, scores []float64, positive string) (float64, error) {
	if metric == "auc" {
		return AUC(actual, scores, positive)
	}
	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		return math.NaN(), err
	}
	switch metric {
	case "accuracy":
		return cm.Accuracy(), nil
	case "precision", "recall", "f1":
		b, err := cm.Binary(positive)
		if err != nil {
			return math.NaN(), err
		}
		switch metric {
		case "precision":
			return b.Precision()
		case "recall":
			return b.Recall()
		default:
			return b.F1()
		}
	}
	return math.NaN(), errors.NewValidationError("metric", "unknown metric", metric)
}
