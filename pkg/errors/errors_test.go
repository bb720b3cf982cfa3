package errors

import (
	"strings"
	"testing"
)

func TestTypedErrorsRoundTripThroughAs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want interface{}
	}{
		{"not fitted", NewNotFittedError("KNNImputer", "Transform"), &NotFittedError{}},
		{"already fitted", NewAlreadyFittedError("Pipeline"), &AlreadyFittedError{}},
		{"insufficient data", NewInsufficientDataError("Split", "yes", 1, 2), &InsufficientDataError{}},
		{"unseen category", NewUnseenCategoryError("color", "teal"), &UnseenCategoryError{}},
		{"layout mismatch", NewFeatureLayoutMismatchError("Predict", []string{"a"}, []string{"b"}), &FeatureLayoutMismatchError{}},
		{"dimension", NewDimensionError("Transform", 3, 2, 1), &DimensionError{}},
		{"validation", NewValidationError("folds", "must be >= 2", 1), &ValidationError{}},
		{"convergence", NewConvergenceFailure("logistic", map[string]interface{}{"c": 1.0}, New("diverged")), &ConvergenceFailure{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch target := tt.want.(type) {
			case *NotFittedError:
				var e *NotFittedError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
			case *AlreadyFittedError:
				var e *AlreadyFittedError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
			case *InsufficientDataError:
				var e *InsufficientDataError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
				if e.Class != "yes" || e.Rows != 1 {
					t.Errorf("fields not preserved: %+v", e)
				}
			case *UnseenCategoryError:
				var e *UnseenCategoryError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
				if e.Feature != "color" || e.Category != "teal" {
					t.Errorf("fields not preserved: %+v", e)
				}
			case *FeatureLayoutMismatchError:
				var e *FeatureLayoutMismatchError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
			case *DimensionError:
				var e *DimensionError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
			case *ValidationError:
				var e *ValidationError
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
			case *ConvergenceFailure:
				var e *ConvergenceFailure
				if !As(tt.err, &e) {
					t.Fatalf("As() failed for %T", target)
				}
				if e.Unwrap() == nil {
					t.Error("ConvergenceFailure should unwrap to its cause")
				}
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewFeatureLayoutMismatchError("RandomForest.Predict",
		[]string{"age", "dose"}, []string{"dose", "age"})
	if !strings.Contains(err.Error(), "feature layout mismatch") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	warn := NewUndefinedMetricWarning("auc", "single class in fold")
	if !strings.Contains(warn.Error(), "excluded from aggregation") {
		t.Errorf("unexpected message: %s", warn.Error())
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "test op")
		panic("boom")
	}
	err := fn()
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	var pe *PanicError
	if !As(err, &pe) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if pe.Operation != "test op" {
		t.Errorf("operation = %q", pe.Operation)
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("ok", func() error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := SafeExecute("panics", func() error { panic(42) }); err == nil {
		t.Error("expected error from panicking fn")
	}
}
