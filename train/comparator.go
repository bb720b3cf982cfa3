package train

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Comparison summarizes one model's held-out fold scores.
type Comparison struct {
	Algorithm string
	Metric    string
	Mean      float64
	Std       float64
	Min       float64
	Max       float64
	Folds     int // defined folds contributing to the summary
}

// Compare aggregates each model's winning fold scores into distribution
// summaries, ordered best mean first. Undefined folds were already excluded
// during the sweep; only defined scores reach this point.
func Compare(models []*TrainedModel) []Comparison {
	out := make([]Comparison, 0, len(models))
	for _, m := range models {
		if len(m.FoldScores) == 0 {
			continue
		}
		c := Comparison{
			Algorithm: m.Algorithm,
			Metric:    m.Metric,
			Mean:      stat.Mean(m.FoldScores, nil),
			Min:       floats.Min(m.FoldScores),
			Max:       floats.Max(m.FoldScores),
			Folds:     len(m.FoldScores),
		}
		if len(m.FoldScores) > 1 {
			c.Std = stat.StdDev(m.FoldScores, nil)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	return out
}

// Summary renders the comparisons as a fixed-width table.
func Summary(comparisons []Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s%-10s%8s%8s%8s%8s%7s\n", "algorithm", "metric", "mean", "sd", "min", "max", "folds")
	for _, c := range comparisons {
		fmt.Fprintf(&b, "%-12s%-10s%8.4f%8.4f%8.4f%8.4f%7d\n",
			c.Algorithm, c.Metric, c.Mean, c.Std, c.Min, c.Max, c.Folds)
	}
	return b.String()
}
