package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/ensemble"
	"github.com/harukisato/tabstack/pipeline"
	"github.com/harukisato/tabstack/train"
)

func newEvaluateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "score saved artifacts against a labeled CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, v)
		},
	}

	cmd.Flags().String("data", "", "labeled data CSV")
	cmd.Flags().String("label", "", "label column name")
	cmd.Flags().String("artifacts", "tabstack-out", "directory holding pipeline and model gobs")
	cmd.Flags().String("model", "", "model gob to score (default: stack.gob when present, else the only model-*.gob)")
	cmd.Flags().String("out", "", "directory for the ROC plot (default: the artifact directory)")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func runEvaluate(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	logs := provider(v)

	dir := v.GetString("artifacts")
	pipe, err := pipeline.Load(filepath.Join(dir, "pipeline.gob"), logs)
	if err != nil {
		return err
	}

	table, err := dataset.ReadCSVFile(v.GetString("data"), v.GetString("label"))
	if err != nil {
		return err
	}
	m, err := pipe.ToMatrix(table)
	if err != nil {
		return err
	}

	path, err := resolveModelPath(dir, v.GetString("model"))
	if err != nil {
		return err
	}
	outDir := v.GetString("out")
	if outDir == "" {
		outDir = dir
	}

	if filepath.Base(path) == "stack.gob" {
		stack, err := ensemble.LoadStacker(path, logs)
		if err != nil {
			return err
		}
		predicted, err := stack.Predict(ctx, m)
		if err != nil {
			return err
		}
		scores, err := stack.PositiveScores(ctx, m)
		if err != nil {
			return err
		}
		return report(cmd, "stacked ensemble", m.Labels, predicted, scores, stack.Positive, outDir)
	}

	tm, err := train.LoadTrainedModel(path)
	if err != nil {
		return err
	}
	predicted, err := tm.Predict(m)
	if err != nil {
		return err
	}
	scores, err := tm.PositiveScores(m)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cross-validated %s at training time: %.4f\n", tm.Metric, tm.CVScore)
	return report(cmd, tm.Algorithm, m.Labels, predicted, scores, tm.Positive, outDir)
}
