package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harukisato/tabstack/dataset"
	"github.com/harukisato/tabstack/ensemble"
	"github.com/harukisato/tabstack/pipeline"
	"github.com/harukisato/tabstack/pkg/errors"
	"github.com/harukisato/tabstack/train"
)

func newPredictCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "apply saved artifacts to new rows and write predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, v)
		},
	}

	cmd.Flags().String("data", "", "unlabeled data CSV")
	cmd.Flags().String("artifacts", "tabstack-out", "directory holding pipeline and model gobs")
	cmd.Flags().String("model", "", "model gob to use (default: stack.gob when present, else the only model-*.gob)")
	cmd.Flags().String("output", "", "CSV to write predictions to (default: stdout)")

	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runPredict(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	logs := provider(v)

	dir := v.GetString("artifacts")
	pipe, err := pipeline.Load(filepath.Join(dir, "pipeline.gob"), logs)
	if err != nil {
		return err
	}

	table, err := dataset.ReadCSVFile(v.GetString("data"), "")
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

	var predicted []string
	var scores []float64
	if filepath.Base(path) == "stack.gob" {
		stack, err := ensemble.LoadStacker(path, logs)
		if err != nil {
			return err
		}
		if predicted, err = stack.Predict(ctx, m); err != nil {
			return err
		}
		if scores, err = stack.PositiveScores(ctx, m); err != nil {
			return err
		}
	} else {
		tm, err := train.LoadTrainedModel(path)
		if err != nil {
			return err
		}
		if predicted, err = tm.Predict(m); err != nil {
			return err
		}
		if scores, err = tm.PositiveScores(m); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if dest := v.GetString("output"); dest != "" {
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"row", "predicted", "score"}); err != nil {
		return err
	}
	for i, label := range predicted {
		rec := []string{
			strconv.Itoa(i),
			label,
			strconv.FormatFloat(scores[i], 'f', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// resolveModelPath picks the artifact to score with. An explicit name wins,
// then a saved stack, then a lone single-family model.
func resolveModelPath(dir, name string) (string, error) {
	if name != "" {
		return filepath.Join(dir, name), nil
	}
	stack := filepath.Join(dir, "stack.gob")
	if _, err := os.Stat(stack); err == nil {
		return stack, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "model-*.gob"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", errors.Newf("no model artifacts in %s", dir)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Newf("multiple models in %s; pick one with --model", dir)
	}
}
