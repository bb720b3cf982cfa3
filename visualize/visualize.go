// Package visualize renders training diagnostics to image files: the ROC
// curve of a fitted model and the feature importances of a ranking model.
package visualize

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/harukisato/tabstack/metrics"
	"github.com/harukisato/tabstack/pkg/errors"
)

// SaveROCCurve draws the ROC operating points with the chance diagonal and
// writes the plot to path (format chosen by extension, e.g. .png or .svg).
func SaveROCCurve(points []metrics.ROCPoint, title, path string) error {
	if len(points) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "visualize.SaveROCCurve")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.FPR, Y: pt.TPR}
	}
	curve, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "visualize.SaveROCCurve")
	}
	p.Add(curve)

	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "visualize.SaveROCCurve")
	}
	diagonal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diagonal)
	p.Add(plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "visualize.SaveROCCurve")
	}
	return nil
}

// SaveImportances draws a horizontal bar chart of feature importances, most
// important at the top, and writes it to path. Features and importances are
// parallel slices.
func SaveImportances(features []string, importances []float64, title, path string) error {
	if len(features) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "visualize.SaveImportances")
	}
	if len(features) != len(importances) {
		return errors.NewDimensionError("visualize.SaveImportances", len(features), len(importances), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "importance"

	// Bars render bottom-up; reverse so the most important feature lands on
	// top.
	values := make(plotter.Values, len(importances))
	names := make([]string, len(features))
	for i := range importances {
		j := len(importances) - 1 - i
		values[i] = importances[j]
		names[i] = features[j]
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return errors.Wrap(err, "visualize.SaveImportances")
	}
	bars.Horizontal = true
	p.Add(bars)
	p.NominalY(names...)

	height := vg.Length(1+len(features)) * vg.Centimeter
	if err := p.Save(6*vg.Inch, height, path); err != nil {
		return errors.Wrap(err, "visualize.SaveImportances")
	}
	return nil
}
