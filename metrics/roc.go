package metrics

import (
	"math"
	"sort"

	"github.com/harukisato/tabstack/pkg/errors"
)

// ROCPoint is one operating point of the curve.
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// ROCCurve sweeps the decision threshold over the positive-class scores and
// returns the resulting operating points ordered from (0,0) to (1,1). Both
// classes must be present.
func ROCCurve(actual []string, scores []float64, positive string) ([]ROCPoint, error) {
	if len(actual) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "metrics.ROCCurve")
	}
	if len(actual) != len(scores) {
		return nil, errors.NewDimensionError("metrics.ROCCurve", len(actual), len(scores), 0)
	}

	pos, neg := 0, 0
	for _, l := range actual {
		if l == positive {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, errors.NewUndefinedMetricWarning("auc", "only one class present")
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	points := []ROCPoint{{Threshold: math.Inf(1)}}
	tp, fp := 0, 0
	for i := 0; i < len(order); {
		// Rows sharing a score move together; splitting them would draw an
		// operating point the classifier cannot realize.
		s := scores[order[i]]
		for i < len(order) && scores[order[i]] == s {
			if actual[order[i]] == positive {
				tp++
			} else {
				fp++
			}
			i++
		}
		points = append(points, ROCPoint{
			Threshold: s,
			FPR:       float64(fp) / float64(neg),
			TPR:       float64(tp) / float64(pos),
		})
	}
	return points, nil
}

// AUC is the area under the ROC curve by trapezoidal integration. Undefined
// (NaN plus a warning) when only one class is present.
func AUC(actual []string, scores []float64, positive string) (float64, error) {
	points, err := ROCCurve(actual, scores, positive)
	if err != nil {
		return math.NaN(), err
	}
	area := 0.0
	for i := 1; i < len(points); i++ {
		dx := points[i].FPR - points[i-1].FPR
		area += dx * (points[i].TPR + points[i-1].TPR) / 2
	}
	return area, nil
}
