package metrics

import (
	"fmt"
	"math"
	"strings"
)

// Report renders the confusion matrix and per-class one-vs-rest metrics as a
// fixed-width table for terminal output.
func (cm *ConfusionMatrix) Report() string {
	var b strings.Builder

	width := 9
	for _, c := range cm.Classes {
		if len(c)+2 > width {
			width = len(c) + 2
		}
	}

	b.WriteString("Confusion matrix (rows = actual, cols = predicted)\n")
	fmt.Fprintf(&b, "%*s", width, "")
	for _, c := range cm.Classes {
		fmt.Fprintf(&b, "%*s", width, c)
	}
	b.WriteByte('\n')
	for i, c := range cm.Classes {
		fmt.Fprintf(&b, "%*s", width, c)
		for j := range cm.Classes {
			fmt.Fprintf(&b, "%*d", width, cm.Counts[i][j])
		}
		b.WriteByte('\n')
	}

	support := cm.Support()
	fmt.Fprintf(&b, "\n%*s%*s%*s%*s%*s\n", width, "", width, "precision", width, "recall", width, "f1", width, "support")
	for i, c := range cm.Classes {
		bin, err := cm.Binary(c)
		if err != nil {
			continue
		}
		p, _ := bin.Precision()
		r, _ := bin.Recall()
		f, _ := bin.F1()
		fmt.Fprintf(&b, "%*s%*s%*s%*s%*d\n",
			width, c, width, fmtMetric(p), width, fmtMetric(r), width, fmtMetric(f), width, support[i])
	}
	fmt.Fprintf(&b, "\naccuracy: %.4f\n", cm.Accuracy())
	return b.String()
}

func fmtMetric(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
