package train

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/parallel"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/metrics"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/resample"
)

// Config selects what a Trainer sweeps and how.
type Config struct {
	// Algorithm names the classifier family, e.g. "forest" or "logistic".
	Algorithm string

	// Grid fixes the combinations to sweep. When nil the family's default
	// grid of TuneLength combinations is used.
	Grid []algorithm.Params

	// TuneLength sizes the auto-generated grid. Ignored when Grid is set.
	TuneLength int

	// Resampling drives fold assignment for the sweep.
	Resampling resample.Spec

	// Metric selects the held-out score to maximize. Empty means AUC for
	// binary problems and accuracy otherwise.
	Metric string

	// Positive is the class for threshold metrics. Empty means the first
	// class in sorted order.
	Positive string

	// Workers bounds the sweep's concurrency. Non-positive means one worker
	// per CPU.
	Workers int
}

// Trainer runs cross-validated model selection for one algorithm family.
type Trainer struct {
	cfg     Config
	factory algorithm.Factory
	logger  log.Logger
}

// New creates a Trainer. The algorithm name must be registered.
func New(cfg Config, provider log.LoggerProvider) (*Trainer, error) {
	factory, err := algorithm.Get(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Resampling.Method == "" {
		cfg.Resampling = resample.DefaultSpec()
	}
	if cfg.TuneLength < 1 {
		cfg.TuneLength = 3
	}
	return &Trainer{
		cfg:     cfg,
		factory: factory,
		logger:  provider.GetLoggerWithName("Trainer").With(log.AlgorithmKey, cfg.Algorithm),
	}, nil
}

// foldResult is one (combination, fold) unit of the sweep.
type foldResult struct {
	score  float64 // NaN when the fold metric is undefined
	probas [][]float64
	rows   []int
	err    error
}

// Fit sweeps the grid over the resampling plan, selects the combination with
// the best mean held-out metric, and refits it on all rows. Rows, folds and
// combinations are fixed before any unit runs, so the selected winner does not
// depend on completion order.
func (tr *Trainer) Fit(ctx context.Context, m *dataset.Matrix, src *random.Source) (*TrainedModel, error) {
	start := time.Now()
	n := m.NumRows()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Trainer.Fit")
	}

	classes := classSet(m.Labels)
	if len(classes) < 2 {
		return nil, errors.NewInsufficientDataError("Trainer.Fit", "", len(classes), 2)
	}
	metric, positive, err := tr.resolveMetric(classes)
	if err != nil {
		return nil, err
	}

	y, err := m.LabelVector(classes)
	if err != nil {
		return nil, err
	}

	grid := tr.cfg.Grid
	if grid == nil {
		grid = tr.factory.DefaultGrid(tr.cfg.TuneLength, len(m.Columns))
	}
	if len(grid) == 0 {
		return nil, errors.NewValidationError("grid", "no hyperparameter combinations to sweep", tr.cfg.Algorithm)
	}

	folds, err := tr.cfg.Resampling.Plan(m.Labels, src.Child(0))
	if err != nil {
		return nil, err
	}

	posIdx := 0
	for i, c := range classes {
		if c == positive {
			posIdx = i
		}
	}

	results := make([]foldResult, len(grid)*len(folds))
	unit := func(u int) error {
		return errors.SafeExecute("Trainer.fold", func() error {
			combo := u / len(folds)
			fold := u % len(folds)
			results[u] = tr.runFold(m, y, grid[combo], folds[fold], classes, metric, positive, posIdx,
				src.Child(uint64(1+u)))
			return results[u].err
		})
	}
	if _, err := parallel.ForEach(ctx, len(results), tr.cfg.Workers, unit); err != nil {
		return nil, errors.Wrap(err, "Trainer.Fit")
	}

	best, bestMean, foldScores := tr.selectWinner(grid, folds, results, metric)
	if best < 0 {
		return nil, errors.Wrapf(errors.ErrNoSuccessfulFit, "Trainer.Fit: %s", tr.cfg.Algorithm)
	}

	oof := collectOOF(results[best*len(folds):(best+1)*len(folds)], n, classes, posIdx)

	clf, err := tr.factory.New(grid[best], src.Child(uint64(1+len(results))))
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(m.Data, y); err != nil {
		return nil, errors.Wrapf(err, "Trainer.Fit: final refit of %s", tr.cfg.Algorithm)
	}

	tr.logger.Info("sweep finished",
		log.MetricKey, metric,
		log.ScoreKey, bestMean,
		"combination", grid[best].String(),
		log.SamplesKey, n,
		log.DurationKey, time.Since(start).Milliseconds(),
	)

	return &TrainedModel{
		Algorithm:  tr.cfg.Algorithm,
		Params:     grid[best],
		Classifier: clf,
		Columns:    append([]string(nil), m.Columns...),
		Classes:    classes,
		Positive:   positive,
		Metric:     metric,
		CVScore:    bestMean,
		FoldScores: foldScores,
		Resampling: tr.cfg.Resampling,
		OOF:        oof,
	}, nil
}

// resolveMetric applies the binary/multiclass defaults and validates the
// metric against the class count.
func (tr *Trainer) resolveMetric(classes []string) (metric, positive string, err error) {
	metric = tr.cfg.Metric
	if metric == "" {
		if len(classes) == 2 {
			metric = "auc"
		} else {
			metric = "accuracy"
		}
	}
	if metric == "auc" && len(classes) != 2 {
		return "", "", errors.NewValidationError("metric", "auc requires a binary problem", len(classes))
	}
	positive = tr.cfg.Positive
	if positive == "" {
		positive = classes[0]
	} else {
		found := false
		for _, c := range classes {
			if c == positive {
				found = true
			}
		}
		if !found {
			return "", "", errors.NewValidationError("positive", "class not present in labels", positive)
		}
	}
	return metric, positive, nil
}

// runFold fits one fresh classifier on the fold's training rows and scores it
// on the held-out rows.
func (tr *Trainer) runFold(m *dataset.Matrix, y *mat.Dense, p algorithm.Params, fold resample.Fold,
	classes []string, metric, positive string, posIdx int, src *random.Source) foldResult {

	clf, err := tr.factory.New(p, src)
	if err != nil {
		return foldResult{err: err}
	}

	trainX := m.SelectRows(fold.TrainIndices)
	trainY := selectRowsVec(y, fold.TrainIndices)
	if err := clf.Fit(trainX.Data, trainY); err != nil {
		return foldResult{err: err}
	}

	testX := m.SelectRows(fold.TestIndices)
	proba, err := clf.PredictProba(testX.Data)
	if err != nil {
		return foldResult{err: err}
	}

	// Fold models may miss classes entirely; re-align their probability
	// columns with the global class order.
	probas := alignProbas(proba, clf.Classes(), len(classes))
	predicted := make([]string, len(fold.TestIndices))
	scores := make([]float64, len(fold.TestIndices))
	actual := make([]string, len(fold.TestIndices))
	for i, r := range fold.TestIndices {
		best := 0
		for j := 1; j < len(classes); j++ {
			if probas[i][j] > probas[i][best] {
				best = j
			}
		}
		predicted[i] = classes[best]
		scores[i] = probas[i][posIdx]
		actual[i] = m.Labels[r]
	}

	score, err := metrics.Score(metric, actual, predicted, scores, positive)
	if err != nil {
		var w *errors.UndefinedMetricWarning
		if errors.As(err, &w) {
			tr.logger.Warn("fold metric undefined",
				log.MetricKey, metric,
				log.FoldKey, fold.Index,
				log.RepeatKey, fold.Repeat,
			)
			return foldResult{score: math.NaN(), probas: probas, rows: fold.TestIndices}
		}
		return foldResult{err: err}
	}
	return foldResult{score: score, probas: probas, rows: fold.TestIndices}
}

// selectWinner aggregates per-fold scores and returns the best combination
// index, its mean score and its defined fold scores. Combinations with a
// failed fit or zero defined folds are skipped and logged.
func (tr *Trainer) selectWinner(grid []algorithm.Params, folds []resample.Fold,
	results []foldResult, metric string) (int, float64, []float64) {

	best, bestMean := -1, math.Inf(-1)
	var bestScores []float64

	for c := range grid {
		failed := false
		var scores []float64
		for f := range folds {
			res := results[c*len(folds)+f]
			if res.err != nil {
				tr.logger.Warn("combination skipped",
					"combination", grid[c].String(),
					log.FoldKey, folds[f].Index,
					log.RepeatKey, folds[f].Repeat,
					"error", res.err.Error(),
				)
				failed = true
				break
			}
			if !math.IsNaN(res.score) {
				scores = append(scores, res.score)
			}
		}
		if failed || len(scores) == 0 {
			continue
		}
		mean := 0.0
		for _, s := range scores {
			mean += s
		}
		mean /= float64(len(scores))
		tr.logger.Debug("combination scored",
			"combination", grid[c].String(),
			log.MetricKey, metric,
			log.ScoreKey, mean,
			"folds", len(scores),
		)
		if mean > bestMean {
			best, bestMean, bestScores = c, mean, scores
		}
	}
	return best, bestMean, bestScores
}

// collectOOF merges the winner's held-out predictions into per-row averages.
func collectOOF(results []foldResult, n int, classes []string, posIdx int) *OOFPredictions {
	oof := &OOFPredictions{
		Probas:  make([][]float64, n),
		Labels:  make([]string, n),
		Scores:  make([]float64, n),
		Covered: make([]int, n),
	}
	sums := make([][]float64, n)
	for _, res := range results {
		if res.err != nil {
			continue
		}
		for i, r := range res.rows {
			if sums[r] == nil {
				sums[r] = make([]float64, len(classes))
			}
			for j, v := range res.probas[i] {
				sums[r][j] += v
			}
			oof.Covered[r]++
		}
	}
	for r := 0; r < n; r++ {
		if oof.Covered[r] == 0 {
			oof.Scores[r] = math.NaN()
			continue
		}
		row := make([]float64, len(classes))
		best := 0
		for j := range row {
			row[j] = sums[r][j] / float64(oof.Covered[r])
			if row[j] > row[best] {
				best = j
			}
		}
		oof.Probas[r] = row
		oof.Labels[r] = classes[best]
		oof.Scores[r] = row[posIdx]
	}
	return oof
}

// alignProbas maps a fold model's probability columns onto the global class
// index space.
func alignProbas(proba mat.Matrix, modelClasses []int, k int) [][]float64 {
	n, _ := proba.Dims()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for j, c := range modelClasses {
			row[c] = proba.At(i, j)
		}
		out[i] = row
	}
	return out
}

// classSet returns the sorted distinct labels.
func classSet(labels []string) []string {
	seen := make(map[string]bool)
	for _, l := range labels {
		seen[l] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// selectRowsVec extracts the given rows of a column vector.
func selectRowsVec(y *mat.Dense, rows []int) *mat.Dense {
	out := mat.NewDense(len(rows), 1, nil)
	for i, r := range rows {
		out.Set(i, 0, y.At(r, 0))
	}
	return out
}
