package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/harukisato/tabstack/pkg/errors"
)

func TestConfusionMatrixBinaryCounts(t *testing.T) {
	actual := []string{"A", "A", "B", "B", "A"}
	predicted := []string{"A", "B", "B", "B", "A"}

	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		t.Fatalf("NewConfusionMatrix failed: %v", err)
	}
	b, err := cm.Binary("A")
	if err != nil {
		t.Fatal(err)
	}

	if b.TP != 2 || b.FN != 1 || b.FP != 0 || b.TN != 2 {
		t.Errorf("counts TP=%d FN=%d FP=%d TN=%d, want TP=2 FN=1 FP=0 TN=2", b.TP, b.FN, b.FP, b.TN)
	}

	p, err := b.Precision()
	if err != nil || math.Abs(p-1.0) > 1e-9 {
		t.Errorf("precision = %v (err %v), want 1.0", p, err)
	}
	r, err := b.Recall()
	if err != nil || math.Abs(r-2.0/3.0) > 1e-6 {
		t.Errorf("recall = %v (err %v), want 0.667", r, err)
	}
	if acc := cm.Accuracy(); math.Abs(acc-0.8) > 1e-9 {
		t.Errorf("accuracy = %v, want 0.8", acc)
	}
}

func TestPrecisionUndefinedWithoutPositivePredictions(t *testing.T) {
	cm, err := NewConfusionMatrix([]string{"A", "B"}, []string{"B", "B"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := cm.Binary("A")
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.Precision()
	if !math.IsNaN(p) {
		t.Errorf("precision = %v, want NaN", p)
	}
	var w *errors.UndefinedMetricWarning
	if !errors.As(err, &w) {
		t.Errorf("expected UndefinedMetricWarning, got %v", err)
	}
}

func TestThresholdMetricsUndefinedWhenPositiveClassAbsent(t *testing.T) {
	// A held-out fold may contain the positive class in neither the actual
	// nor the predicted labels (a singleton negative row under leave-one-out
	// predicted negative). The metric is undefined there, never fatal.
	actual := []string{"B", "B"}
	predicted := []string{"B", "B"}

	for _, metric := range []string{"recall", "precision", "f1"} {
		got, err := Score(metric, actual, predicted, nil, "A")
		if !math.IsNaN(got) {
			t.Errorf("%s = %v, want NaN", metric, got)
		}
		var w *errors.UndefinedMetricWarning
		if !errors.As(err, &w) {
			t.Errorf("%s: expected UndefinedMetricWarning, got %v", metric, err)
		}
	}

	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cm.Binary("A")
	if err != nil {
		t.Fatalf("Binary with absent positive failed: %v", err)
	}
	if b.TP != 0 || b.FP != 0 || b.FN != 0 || b.TN != 2 {
		t.Errorf("counts TP=%d FP=%d FN=%d TN=%d, want all rows as TN", b.TP, b.FP, b.FN, b.TN)
	}
}

func TestConfusionMatrixMulticlass(t *testing.T) {
	actual := []string{"a", "b", "c", "a", "b", "c"}
	predicted := []string{"a", "b", "b", "a", "c", "c"}
	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		t.Fatal(err)
	}
	if len(cm.Classes) != 3 {
		t.Fatalf("classes = %v", cm.Classes)
	}
	support := cm.Support()
	for i, s := range support {
		if s != 2 {
			t.Errorf("support[%s] = %d, want 2", cm.Classes[i], s)
		}
	}
	if math.Abs(cm.Accuracy()-4.0/6.0) > 1e-9 {
		t.Errorf("accuracy = %v", cm.Accuracy())
	}
}

func TestScoreDispatch(t *testing.T) {
	actual := []string{"A", "A", "B", "B", "A"}
	predicted := []string{"A", "B", "B", "B", "A"}

	acc, err := Score("accuracy", actual, predicted, nil, "A")
	if err != nil || math.Abs(acc-0.8) > 1e-9 {
		t.Errorf("accuracy = %v (err %v)", acc, err)
	}
	f1, err := Score("f1", actual, predicted, nil, "A")
	if err != nil || math.Abs(f1-0.8) > 1e-9 {
		t.Errorf("f1 = %v (err %v), want 0.8", f1, err)
	}
	if _, err := Score("rmse", actual, predicted, nil, "A"); err == nil {
		t.Error("unknown metric should be rejected")
	}
}

func TestReportRendersAllClasses(t *testing.T) {
	cm, err := NewConfusionMatrix([]string{"yes", "no", "yes"}, []string{"yes", "no", "no"})
	if err != nil {
		t.Fatal(err)
	}
	report := cm.Report()
	if !strings.Contains(report, "yes") || !strings.Contains(report, "no") {
		t.Errorf("report missing class rows:\n%s", report)
	}
	if !strings.Contains(report, "accuracy") {
		t.Errorf("report missing accuracy line:\n%s", report)
	}
}

func TestConfusionMatrixLengthMismatch(t *testing.T) {
	_, err := NewConfusionMatrix([]string{"a"}, []string{"a", "b"})
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}
