// Package pipeline chains the transform stages into a single fit-once,
// apply-many artifact.
//
// The stage order is fixed: imputation first (so encoding and scaling see
// complete data), one-hot encoding second (so scaling sees an all-numeric
// table), range scaling last. Fit learns each stage from the output of the
// previous stage's transform, which is exactly what Apply replays later; no
// stage ever sees data its predecessor has not processed.
package pipeline

import (
	"encoding/gob"
	"time"

	"github.com/harukisato/tabstack/core/model"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/pkg/log"
	"github.com/harukisato/tabstack/preprocessing"
)

func init() {
	gob.Register(&preprocessing.KNNImputer{})
	gob.Register(&preprocessing.OneHotEncoder{})
	gob.Register(&preprocessing.MinMaxNormalizer{})
}

// Config selects the stage parameters of a Pipeline.
type Config struct {
	// ImputeK is the neighbor count for the imputation stage. Non-positive
	// values fall back to the imputer default.
	ImputeK int

	// CategoricalDistance includes categorical features in the imputer's
	// neighbor distance.
	CategoricalDistance bool

	// EncodePolicy decides how the encoder treats apply-time categories that
	// were absent from the training data.
	EncodePolicy preprocessing.EncodePolicy
}

// Pipeline applies the transform stages in order. After Fit the pipeline is a
// frozen artifact: Apply replays the fitted stages without learning anything
// from apply-time data.
type Pipeline struct {
	State  *model.StateManager
	Stages []preprocessing.Stage

	// OutColumns is the feature layout the pipeline produces, frozen at fit
	// time by the encoding stage.
	OutColumns []string

	logger log.Logger
}

// New creates an unfitted pipeline with the standard stage order.
func New(cfg Config, provider log.LoggerProvider) *Pipeline {
	var opts []preprocessing.KNNImputerOption
	if cfg.CategoricalDistance {
		opts = append(opts, preprocessing.WithCategoricalDistance())
	}
	return &Pipeline{
		State: model.NewStateManager(),
		Stages: []preprocessing.Stage{
			preprocessing.NewKNNImputer(cfg.ImputeK, opts...),
			preprocessing.NewOneHotEncoder(cfg.EncodePolicy),
			preprocessing.NewMinMaxNormalizer(),
		},
		logger: provider.GetLoggerWithName("Pipeline"),
	}
}

// Fit learns every stage from training data. Each stage fits on the previous
// stage's output, so the learned artifacts compose the same way Apply composes
// them.
func (p *Pipeline) Fit(t *dataset.Table) error {
	if err := p.State.RequireNotFitted("Pipeline"); err != nil {
		return err
	}
	if t.NumRows() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "Pipeline.Fit")
	}

	cur := t
	for _, stage := range p.Stages {
		start := time.Now()
		if err := stage.Fit(cur); err != nil {
			return errors.Wrapf(err, "Pipeline.Fit: stage %s", stage.Name())
		}
		out, err := stage.Transform(cur)
		if err != nil {
			return errors.Wrapf(err, "Pipeline.Fit: stage %s", stage.Name())
		}
		p.logger.Debug("stage fitted",
			log.OperationKey, stage.Name(),
			log.SamplesKey, cur.NumRows(),
			log.FeaturesKey, out.NumCols(),
			log.DurationKey, time.Since(start).Milliseconds(),
		)
		cur = out
	}

	p.OutColumns = cur.ColumnNames()
	p.State.SetDimensions(t.NumCols(), t.NumRows())
	p.State.SetFitted()
	p.logger.Info("pipeline fitted",
		log.SamplesKey, t.NumRows(),
		log.FeaturesKey, len(p.OutColumns),
	)
	return nil
}

// Apply replays the fitted stages on any data with the same raw feature
// layout. The output is an all-numeric table whose columns match OutColumns.
func (p *Pipeline) Apply(t *dataset.Table) (*dataset.Table, error) {
	if err := p.State.RequireFitted("Pipeline", "Apply"); err != nil {
		return nil, err
	}
	cur := t
	for _, stage := range p.Stages {
		out, err := stage.Transform(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "Pipeline.Apply: stage %s", stage.Name())
		}
		cur = out
	}
	return cur, nil
}

// ToMatrix applies the pipeline and converts the result to a feature matrix
// suitable for model training.
func (p *Pipeline) ToMatrix(t *dataset.Table) (*dataset.Matrix, error) {
	out, err := p.Apply(t)
	if err != nil {
		return nil, err
	}
	return out.Matrix()
}

// Save writes the fitted pipeline artifact to path using gob encoding.
func (p *Pipeline) Save(path string) error {
	if err := p.State.RequireFitted("Pipeline", "Save"); err != nil {
		return err
	}
	return model.SaveModel(p, path)
}

// Load reads a fitted pipeline artifact from path and attaches a logger from
// the provider.
func Load(path string, provider log.LoggerProvider) (*Pipeline, error) {
	p := &Pipeline{}
	if err := model.LoadModel(p, path); err != nil {
		return nil, err
	}
	p.logger = provider.GetLoggerWithName("Pipeline")
	return p, nil
}
