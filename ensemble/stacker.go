// Package ensemble stacks trained base models: a second-stage classifier
// learns from the base models' out-of-fold predictions, so it never sees a
// prediction made by a model that trained on the same row.
package ensemble

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/core/parallel"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/train"
)

// Stacker trains a logistic meta-classifier on the out-of-fold predictions of
// an ordered list of base models. The order fixes the meta-feature layout;
// prediction assembles the same layout from the base models' full-fit
// probabilities.
type Stacker struct {
	State *model.StateManager

	// Bases is the ordered list of base models. Fixed at construction.
	Bases []*train.TrainedModel

	// Meta is the second-stage classifier, fit on the meta-feature matrix.
	Meta *algorithm.LogisticRegression

	// MetaColumns names the meta features, one per base model and class
	// column, in sweep order.
	MetaColumns []string

	// Classes and Positive are shared by all base models.
	Classes  []string
	Positive string

	// Workers bounds prediction-time concurrency over base models.
	Workers int

	logger log.Logger
}

// NewStacker validates the base models and returns an unfitted stacker. At
// least two base models are required, all trained on the same rows with the
// same class domain and resampling.
func NewStacker(bases []*train.TrainedModel, provider log.LoggerProvider) (*Stacker, error) {
	if len(bases) < 2 {
		return nil, errors.NewValidationError("bases", "stacking requires at least 2 base models", len(bases))
	}
	first := bases[0]
	if first.OOF == nil {
		return nil, errors.NewValidationError("bases", "base model has no out-of-fold predictions", first.Algorithm)
	}
	n := len(first.OOF.Labels)
	for _, b := range bases[1:] {
		if b.OOF == nil || len(b.OOF.Labels) != n {
			return nil, errors.NewValidationError("bases", "base models trained on different row sets", b.Algorithm)
		}
		if !sameStrings(b.Classes, first.Classes) {
			return nil, errors.NewValidationError("bases", "base models disagree on the class domain", b.Algorithm)
		}
		if b.Resampling != first.Resampling {
			return nil, errors.NewValidationError("bases", "base models used different resampling", b.Algorithm)
		}
	}

	s := &Stacker{
		State:    model.NewStateManager(),
		Bases:    bases,
		Classes:  append([]string(nil), first.Classes...),
		Positive: first.Positive,
		logger:   provider.GetLoggerWithName("Stacker"),
	}
	for _, b := range bases {
		for _, col := range s.modelColumns(b) {
			s.MetaColumns = append(s.MetaColumns, col)
		}
	}
	return s, nil
}

// modelColumns names the meta features one base model contributes: the
// positive-class probability for binary problems, one probability column per
// class otherwise.
func (s *Stacker) modelColumns(b *train.TrainedModel) []string {
	if len(s.Classes) == 2 {
		return []string{fmt.Sprintf("%s:%s", b.Algorithm, s.Positive)}
	}
	out := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		out[i] = fmt.Sprintf("%s:%s", b.Algorithm, c)
	}
	return out
}

// metaRow writes one base model's contribution for a probability row.
func (s *Stacker) metaRow(b *train.TrainedModel, probas []float64) []float64 {
	if len(s.Classes) == 2 {
		for i, c := range s.Classes {
			if c == s.Positive {
				return []float64{probas[i]}
			}
		}
	}
	return probas
}

// Fit trains the meta-classifier on the base models' out-of-fold predictions
// against the true labels. Rows never held out by the shared resampling are
// dropped.
func (s *Stacker) Fit(labels []string) error {
	if err := s.State.RequireNotFitted("Stacker"); err != nil {
		return err
	}
	n := len(s.Bases[0].OOF.Labels)
	if len(labels) != n {
		return errors.NewDimensionError("Stacker.Fit", n, len(labels), 0)
	}

	var rows [][]float64
	var kept []string
	dropped := 0
	for r := 0; r < n; r++ {
		row := make([]float64, 0, len(s.MetaColumns))
		covered := true
		for _, b := range s.Bases {
			if b.OOF.Covered[r] == 0 {
				covered = false
				break
			}
			row = append(row, s.metaRow(b, b.OOF.Probas[r])...)
		}
		if !covered {
			dropped++
			continue
		}
		rows = append(rows, row)
		kept = append(kept, labels[r])
	}
	if dropped > 0 {
		s.logger.Warn("rows without out-of-fold coverage dropped",
			log.SamplesKey, dropped,
		)
	}
	if len(rows) < 2 {
		return errors.NewInsufficientDataError("Stacker.Fit", "", len(rows), 2)
	}

	X := mat.NewDense(len(rows), len(s.MetaColumns), nil)
	y := mat.NewDense(len(rows), 1, nil)
	classIdx := make(map[string]int, len(s.Classes))
	for i, c := range s.Classes {
		classIdx[c] = i
	}
	for i, row := range rows {
		X.SetRow(i, row)
		j, ok := classIdx[kept[i]]
		if !ok {
			return errors.NewValidationError("label", "outside the base models' class domain", kept[i])
		}
		y.Set(i, 0, float64(j))
	}

	meta := algorithm.NewLogisticRegression()
	meta.Lambda = 1e-3
	if err := meta.Fit(X, y); err != nil {
		return errors.Wrap(err, "Stacker.Fit")
	}
	s.Meta = meta

	s.State.SetDimensions(len(s.MetaColumns), len(rows))
	s.State.SetFitted()
	s.logger.Info("meta-classifier fitted",
		log.SamplesKey, len(rows),
		log.FeaturesKey, len(s.MetaColumns),
	)
	return nil
}

// assemble builds the meta-feature matrix for new data from the base models'
// full-fit probabilities. Base models predict concurrently.
func (s *Stacker) assemble(ctx context.Context, m *dataset.Matrix) (*mat.Dense, error) {
	probas := make([][][]float64, len(s.Bases))
	unit := func(i int) error {
		p, err := s.Bases[i].PredictProba(m)
		if err != nil {
			return err
		}
		probas[i] = p
		return nil
	}
	errs, err := parallel.ForEach(ctx, len(s.Bases), s.Workers, unit)
	if err != nil {
		return nil, errors.Wrap(err, "Stacker.assemble")
	}
	for i, e := range errs {
		if e != nil {
			return nil, errors.Wrapf(e, "Stacker.assemble: base %s", s.Bases[i].Algorithm)
		}
	}

	n := m.NumRows()
	X := mat.NewDense(n, len(s.MetaColumns), nil)
	for i := 0; i < n; i++ {
		row := make([]float64, 0, len(s.MetaColumns))
		for b, base := range s.Bases {
			row = append(row, s.metaRow(base, probas[b][i])...)
		}
		X.SetRow(i, row)
	}
	return X, nil
}

// PredictProba returns meta-classifier probabilities aligned with Classes.
func (s *Stacker) PredictProba(ctx context.Context, m *dataset.Matrix) ([][]float64, error) {
	if err := s.State.RequireFitted("Stacker", "PredictProba"); err != nil {
		return nil, err
	}
	X, err := s.assemble(ctx, m)
	if err != nil {
		return nil, err
	}
	proba, err := s.Meta.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = proba.At(i, j)
		}
		out[i] = row
	}
	return out, nil
}

// Predict returns the stacked label per row.
func (s *Stacker) Predict(ctx context.Context, m *dataset.Matrix) ([]string, error) {
	proba, err := s.PredictProba(ctx, m)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(proba))
	for i, row := range proba {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = s.Classes[best]
	}
	return out, nil
}

// PositiveScores returns the stacked positive-class probability per row.
func (s *Stacker) PositiveScores(ctx context.Context, m *dataset.Matrix) ([]float64, error) {
	proba, err := s.PredictProba(ctx, m)
	if err != nil {
		return nil, err
	}
	p := -1
	for i, c := range s.Classes {
		if c == s.Positive {
			p = i
		}
	}
	if p < 0 {
		return nil, errors.NewValidationError("positive", "class not in domain", s.Positive)
	}
	out := make([]float64, len(proba))
	for i, row := range proba {
		out[i] = row[p]
	}
	return out, nil
}

// Save writes the fitted stacker, base models included, to path.
func (s *Stacker) Save(path string) error {
	if err := s.State.RequireFitted("Stacker", "Save"); err != nil {
		return err
	}
	return model.SaveModel(s, path)
}

// LoadStacker reads a stacker artifact from path and attaches a logger from
// the provider.
func LoadStacker(path string, provider log.LoggerProvider) (*Stacker, error) {
	s := &Stacker{}
	if err := model.LoadModel(s, path); err != nil {
		return nil, err
	}
	s.logger = provider.GetLoggerWithName("Stacker")
	return s, nil
}

// FitAll trains one base model per config concurrently. Each trainer derives
// its own child random stream, so the result is independent of scheduling
// order. A failed trainer fails the whole call; partial results are discarded.
func FitAll(ctx context.Context, cfgs []train.Config, m *dataset.Matrix,
	src *random.Source, provider log.LoggerProvider) ([]*train.TrainedModel, error) {

	models := make([]*train.TrainedModel, len(cfgs))
	unit := func(i int) error {
		tr, err := train.New(cfgs[i], provider)
		if err != nil {
			return err
		}
		tm, err := tr.Fit(ctx, m, src.Child(uint64(i)))
		if err != nil {
			return err
		}
		models[i] = tm
		return nil
	}
	errs, err := parallel.ForEach(ctx, len(cfgs), 0, unit)
	if err != nil {
		return nil, errors.Wrap(err, "ensemble.FitAll")
	}
	for i, e := range errs {
		if e != nil {
			return nil, errors.Wrapf(e, "ensemble.FitAll: %s", cfgs[i].Algorithm)
		}
	}
	return models, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
