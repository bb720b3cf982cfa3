// Package selection implements recursive feature elimination: rank features
// with an importance-capable model under cross-validation, drop to each
// candidate subset size, and keep the size with the best held-out metric.
// The ranking is recomputed at every elimination step, so features that only
// matter in combination survive as long as they earn it.
package selection

import (
	"context"
	"sort"
	"time"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/resample"
	"github.com/harukisato/tabstack/train"
)

// Config drives an RFE run.
type Config struct {
	// Algorithm names the ranking model family. It must expose feature
	// importances ("forest", "cart" or "logistic").
	Algorithm string

	// Sizes are the candidate subset sizes, ascending. The full feature set
	// is always evaluated in addition. Empty means every size from 1 to the
	// feature count.
	Sizes []int

	// Resampling drives the per-size cross-validation. Empty means repeated
	// 5-fold, 3 repeats.
	Resampling resample.Spec

	// Metric and Positive follow the trainer's defaults when empty.
	Metric   string
	Positive string

	Workers int
}

// Result is the outcome of an RFE run.
type Result struct {
	// BestSize is the subset size with the best cross-validated metric, ties
	// broken toward the smaller subset.
	BestSize int

	// Features are the selected feature names, in ranked order.
	Features []string

	// Sizes and Scores record the evaluated sizes (descending evaluation
	// order, full set first) and their metric means.
	Sizes  []int
	Scores []float64

	Metric string
}

// RFE eliminates features recursively using one ranking model family.
type RFE struct {
	cfg    Config
	logger log.Logger

	provider log.LoggerProvider
}

// New validates the configuration and returns a selector.
func New(cfg Config, provider log.LoggerProvider) (*RFE, error) {
	factory, err := algorithm.Get(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	// Probe the family for importance support with a throwaway instance.
	probe, err := factory.New(algorithm.Params{}, random.NewSource(0))
	if err != nil {
		return nil, err
	}
	if _, ok := probe.(algorithm.Importancer); !ok {
		return nil, errors.NewValidationError("algorithm", "family cannot rank features", cfg.Algorithm)
	}
	if cfg.Resampling.Method == "" {
		cfg.Resampling = resample.Spec{Method: resample.MethodRepeatedKFold, Folds: 5, Repeats: 3, Stratify: true}
	}
	return &RFE{
		cfg:      cfg,
		logger:   provider.GetLoggerWithName("RFE").With(log.AlgorithmKey, cfg.Algorithm),
		provider: provider,
	}, nil
}

// Select runs the elimination over m and returns the winning subset.
func (r *RFE) Select(ctx context.Context, m *dataset.Matrix, src *random.Source) (*Result, error) {
	start := time.Now()
	p := len(m.Columns)
	if p == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "RFE.Select")
	}

	sizes, err := r.candidateSizes(p)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	current := append([]string(nil), m.Columns...)
	bestScore := 0.0
	haveBest := false

	// Walk sizes descending: each step evaluates the current subset, then
	// re-ranks and truncates for the next smaller size.
	for step, size := range sizes {
		sub, err := m.SelectColumns(current[:size])
		if err != nil {
			return nil, err
		}

		tm, err := r.fitRanking(ctx, sub, src.Child(uint64(step)))
		if err != nil {
			return nil, err
		}
		result.Sizes = append(result.Sizes, size)
		result.Scores = append(result.Scores, tm.CVScore)
		result.Metric = tm.Metric

		r.logger.Debug("subset evaluated",
			log.FeaturesKey, size,
			log.MetricKey, tm.Metric,
			log.ScoreKey, tm.CVScore,
		)

		// Ties break toward the smaller subset; sizes shrink as we walk, so
		// >= keeps the later (smaller) candidate.
		if !haveBest || tm.CVScore >= bestScore {
			bestScore = tm.CVScore
			haveBest = true
			result.BestSize = size
			result.Features = append([]string(nil), current[:size]...)
		}

		// Re-rank before shrinking: the next iteration's current[:size]
		// keeps the top-ranked features of this subset.
		if step+1 < len(sizes) {
			current = rankFeatures(tm, current[:size])
		}
	}

	r.logger.Info("selection finished",
		log.FeaturesKey, result.BestSize,
		log.ScoreKey, bestScore,
		log.DurationKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// candidateSizes returns the evaluation order: full set first, then the
// configured sizes descending.
func (r *RFE) candidateSizes(p int) ([]int, error) {
	sizes := r.cfg.Sizes
	if len(sizes) == 0 {
		sizes = make([]int, p)
		for i := range sizes {
			sizes[i] = i + 1
		}
	}
	for _, s := range sizes {
		if s < 1 || s > p {
			return nil, errors.NewValidationError("sizes", "subset size out of range", s)
		}
	}
	out := append([]int(nil), sizes...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	if out[0] != p {
		out = append([]int{p}, out...)
	}
	return out, nil
}

// fitRanking trains the ranking model on one feature subset with a single
// default combination.
func (r *RFE) fitRanking(ctx context.Context, m *dataset.Matrix, src *random.Source) (*train.TrainedModel, error) {
	tr, err := train.New(train.Config{
		Algorithm:  r.cfg.Algorithm,
		TuneLength: 1,
		Resampling: r.cfg.Resampling,
		Metric:     r.cfg.Metric,
		Positive:   r.cfg.Positive,
		Workers:    r.cfg.Workers,
	}, r.provider)
	if err != nil {
		return nil, err
	}
	return tr.Fit(ctx, m, src)
}

// rankFeatures orders the subset's features by importance descending; ties
// break toward the earlier column for determinism.
func rankFeatures(tm *train.TrainedModel, features []string) []string {
	imp := tm.Classifier.(algorithm.Importancer).FeatureImportances()
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return imp[order[a]] > imp[order[b]] })
	out := make([]string, len(features))
	for i, j := range order {
		out[i] = features[j]
	}
	return out
}
