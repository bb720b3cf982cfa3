package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harukisato/tabstack/metrics"
)

func TestSaveROCCurve(t *testing.T) {
	points, err := metrics.ROCCurve(
		[]string{"P", "N", "P", "N", "P"},
		[]float64{0.9, 0.7, 0.6, 0.3, 0.2},
		"P")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "roc.png")
	if err := SaveROCCurve(points, "roc", path); err != nil {
		t.Fatalf("SaveROCCurve failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("no plot written: %v", err)
	}
}

func TestSaveImportances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.png")
	err := SaveImportances([]string{"dose", "mass", "color=red"}, []float64{0.6, 0.3, 0.1}, "importance", path)
	if err != nil {
		t.Fatalf("SaveImportances failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("no plot written: %v", err)
	}
}

func TestSaveImportancesLengthMismatch(t *testing.T) {
	err := SaveImportances([]string{"a"}, []float64{0.5, 0.5}, "x", filepath.Join(t.TempDir(), "x.png"))
	if err == nil {
		t.Fatal("mismatched lengths should be rejected")
	}
}
