package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harukisato/tabstack/algorithm"
	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/ensemble"
	"github.com/harukisato/tabstack/metrics"
	"github.com/harukisato/tabstack/pipeline"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/preprocessing"
	"github.com/harukisato/tabstack/resample"
	"github.com/harukisato/tabstack/selection"
	"github.com/harukisato/tabstack/train"
	"github.com/harukisato/tabstack/visualize"
)

func newTrainCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "split, fit the transform pipeline, sweep models and stack them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, v)
		},
	}

	cmd.Flags().String("data", "", "training data CSV")
	cmd.Flags().String("label", "", "label column name")
	cmd.Flags().Float64("train-fraction", 0.75, "share of rows kept for training")
	cmd.Flags().StringSlice("algorithms", []string{"forest", "logistic"}, "families to sweep: "+strings.Join(algorithm.Names(), ", "))
	cmd.Flags().String("method", "kfold", "resampling: kfold, repeatedkfold, bootstrap, loo, lgo")
	cmd.Flags().Int("folds", 10, "fold count")
	cmd.Flags().Int("repeats", 1, "repeat / resample count")
	cmd.Flags().Int("tune-length", 3, "auto-grid size per family")
	cmd.Flags().String("metric", "", "selection metric (default: auc for binary, accuracy otherwise)")
	cmd.Flags().String("positive", "", "positive class (default: first class sorted)")
	cmd.Flags().Int("impute-k", 5, "neighbor count for imputation")
	cmd.Flags().Bool("categorical-distance", false, "include categorical features in the imputer's neighbor distance")
	cmd.Flags().Bool("strict-encoding", false, "fail on categories unseen at fit time")
	cmd.Flags().Bool("stack", false, "train a stacked ensemble over the swept families")
	cmd.Flags().String("select", "", "run feature selection with this ranking family before training")
	cmd.Flags().Int("workers", 0, "sweep concurrency (0 = all cores)")
	cmd.Flags().String("out", "tabstack-out", "artifact output directory")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func runTrain(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	logs := provider(v)
	logger := logs.GetLoggerWithName("tabstack")
	src := random.NewSource(v.GetUint64("seed"))

	table, err := dataset.ReadCSVFile(v.GetString("data"), v.GetString("label"))
	if err != nil {
		return err
	}
	logger.Info("data loaded", "rows", table.NumRows(), "features", table.NumCols())

	splitter := dataset.NewSplitter(v.GetFloat64("train-fraction"))
	trainTab, testTab, err := splitter.Split(table, src.Child(0))
	if err != nil {
		return err
	}

	policy := preprocessing.EncodeLenient
	if v.GetBool("strict-encoding") {
		policy = preprocessing.EncodeStrict
	}
	pipe := pipeline.New(pipeline.Config{
		ImputeK:             v.GetInt("impute-k"),
		CategoricalDistance: v.GetBool("categorical-distance"),
		EncodePolicy:        policy,
	}, logs)
	if err := pipe.Fit(trainTab); err != nil {
		return err
	}
	trainM, err := pipe.ToMatrix(trainTab)
	if err != nil {
		return err
	}
	testM, err := pipe.ToMatrix(testTab)
	if err != nil {
		return err
	}

	method, err := resample.ParseMethod(v.GetString("method"))
	if err != nil {
		return err
	}
	spec := resample.Spec{
		Method:   method,
		Folds:    v.GetInt("folds"),
		Repeats:  v.GetInt("repeats"),
		Stratify: true,
	}

	outDir := v.GetString("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	if family := v.GetString("select"); family != "" {
		rfe, err := selection.New(selection.Config{
			Algorithm:  family,
			Resampling: spec,
			Metric:     v.GetString("metric"),
			Positive:   v.GetString("positive"),
			Workers:    v.GetInt("workers"),
		}, logs)
		if err != nil {
			return err
		}
		res, err := rfe.Select(ctx, trainM, src.Child(1))
		if err != nil {
			return err
		}
		logger.Info("features selected", "size", res.BestSize, "features", strings.Join(res.Features, ","))
		if trainM, err = trainM.SelectColumns(res.Features); err != nil {
			return err
		}
		if testM, err = testM.SelectColumns(res.Features); err != nil {
			return err
		}
	}

	families := v.GetStringSlice("algorithms")
	if len(families) == 0 {
		return errors.NewValidationError("algorithms", "at least one family is required", families)
	}
	var cfgs []train.Config
	for _, name := range families {
		cfgs = append(cfgs, train.Config{
			Algorithm:  name,
			TuneLength: v.GetInt("tune-length"),
			Resampling: spec,
			Metric:     v.GetString("metric"),
			Positive:   v.GetString("positive"),
			Workers:    v.GetInt("workers"),
		})
	}
	models, err := ensemble.FitAll(ctx, cfgs, trainM, src.Child(2), logs)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), train.Summary(train.Compare(models)))

	if err := pipe.Save(filepath.Join(outDir, "pipeline.gob")); err != nil {
		return err
	}
	for _, m := range models {
		if err := m.Save(filepath.Join(outDir, "model-"+m.Algorithm+".gob")); err != nil {
			return err
		}
		if imp, ok := m.Classifier.(algorithm.Importancer); ok {
			path := filepath.Join(outDir, "importance-"+m.Algorithm+".png")
			if err := visualize.SaveImportances(m.Columns, imp.FeatureImportances(), m.Algorithm, path); err != nil {
				logger.Warn("importance plot failed", "error", err.Error())
			}
		}
	}

	best := models[0]
	for _, m := range models[1:] {
		if m.CVScore > best.CVScore {
			best = m
		}
	}

	if v.GetBool("stack") {
		stack, err := ensemble.NewStacker(models, logs)
		if err != nil {
			return err
		}
		if err := stack.Fit(trainM.Labels); err != nil {
			return err
		}
		if err := stack.Save(filepath.Join(outDir, "stack.gob")); err != nil {
			return err
		}
		pred, err := stack.Predict(ctx, testM)
		if err != nil {
			return err
		}
		scores, err := stack.PositiveScores(ctx, testM)
		if err != nil {
			return err
		}
		return report(cmd, "stacked ensemble", testM.Labels, pred, scores, stack.Positive, outDir)
	}

	pred, err := best.Predict(testM)
	if err != nil {
		return err
	}
	scores, err := best.PositiveScores(testM)
	if err != nil {
		return err
	}
	return report(cmd, best.Algorithm, testM.Labels, pred, scores, best.Positive, outDir)
}

// report prints the held-out confusion matrix and writes the ROC curve when
// defined.
func report(cmd *cobra.Command, name string, actual, predicted []string, scores []float64, positive, outDir string) error {
	cm, err := metrics.NewConfusionMatrix(actual, predicted)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "held-out performance (%s):\n%s", name, cm.Report())

	points, err := metrics.ROCCurve(actual, scores, positive)
	if err != nil {
		return nil // undefined for this data; nothing to draw
	}
	auc, err := metrics.AUC(actual, scores, positive)
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "auc: %.4f\n", auc)
	}
	return visualize.SaveROCCurve(points, name, filepath.Join(outDir, "roc.png"))
}
