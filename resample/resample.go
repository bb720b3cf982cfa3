// Package resample assigns rows to cross-validation folds.
//
// A Spec describes the resampling strategy; Plan materializes it into concrete
// Fold values given the label column and a random source. Every strategy is
// deterministic under a fixed seed: repeats derive independent child streams
// so fold assignment does not depend on evaluation order.
package resample

import (
	"sort"

	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

// Method selects a resampling strategy.
type Method string

const (
	// MethodKFold partitions rows into k disjoint folds.
	MethodKFold Method = "kfold"

	// MethodRepeatedKFold runs k-fold r times with different partitions.
	MethodRepeatedKFold Method = "repeatedkfold"

	// MethodBootstrap draws n rows with replacement per resample; the
	// out-of-bag rows form the held-out set.
	MethodBootstrap Method = "bootstrap"

	// MethodLeaveOneOut holds out each row individually.
	MethodLeaveOneOut Method = "loo"

	// MethodLeaveGroupOut holds out a random fraction of rows per resample,
	// stratified by class.
	MethodLeaveGroupOut Method = "lgo"
)

// ParseMethod maps a configuration string to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodKFold, MethodRepeatedKFold, MethodBootstrap, MethodLeaveOneOut, MethodLeaveGroupOut:
		return Method(s), nil
	}
	return "", errors.NewValidationError("method", "unknown resampling method", s)
}

// Spec configures fold assignment.
type Spec struct {
	Method Method

	// Folds is the fold count for k-fold strategies.
	Folds int

	// Repeats is the repeat count for repeated k-fold, and the resample count
	// for bootstrap and leave-group-out.
	Repeats int

	// Stratify balances class proportions across k-fold folds.
	Stratify bool

	// TestFraction is the held-out share per leave-group-out resample.
	TestFraction float64
}

// DefaultSpec is stratified 10-fold, the usual starting point for tabular
// classification.
func DefaultSpec() Spec {
	return Spec{Method: MethodKFold, Folds: 10, Repeats: 1, Stratify: true}
}

// Fold is one train/test assignment of row indices. TrainIndices and
// TestIndices are disjoint, sorted, and index into the table the plan was
// built for.
type Fold struct {
	Repeat       int
	Index        int
	TrainIndices []int
	TestIndices  []int
}

// Plan materializes the spec into folds over len(labels) rows. The labels are
// consulted only by stratified strategies.
func (s Spec) Plan(labels []string, src *random.Source) ([]Fold, error) {
	n := len(labels)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "resample.Plan")
	}

	switch s.Method {
	case MethodKFold:
		return s.planKFold(labels, 1, src)
	case MethodRepeatedKFold:
		repeats := s.Repeats
		if repeats < 1 {
			repeats = 1
		}
		return s.planKFold(labels, repeats, src)
	case MethodBootstrap:
		return s.planBootstrap(n, src)
	case MethodLeaveOneOut:
		return planLeaveOneOut(n), nil
	case MethodLeaveGroupOut:
		return s.planLeaveGroupOut(labels, src)
	}
	return nil, errors.NewValidationError("method", "unknown resampling method", string(s.Method))
}

func (s Spec) planKFold(labels []string, repeats int, src *random.Source) ([]Fold, error) {
	n := len(labels)
	k := s.Folds
	if k < 2 {
		return nil, errors.NewValidationError("folds", "k-fold requires at least 2 folds", k)
	}
	if n < k {
		return nil, errors.NewInsufficientDataError("resample.Plan", "", n, k)
	}

	var folds []Fold
	for rep := 0; rep < repeats; rep++ {
		repSrc := src.Child(uint64(rep))
		var assignment [][]int
		if s.Stratify {
			assignment = stratifiedAssignment(labels, k, repSrc)
		} else {
			assignment = plainAssignment(n, k, repSrc)
		}
		for i, test := range assignment {
			folds = append(folds, Fold{
				Repeat:       rep,
				Index:        i,
				TrainIndices: complement(n, test),
				TestIndices:  sortedCopy(test),
			})
		}
	}
	return folds, nil
}

// plainAssignment shuffles rows and deals them round-robin into k folds.
func plainAssignment(n, k int, src *random.Source) [][]int {
	perm := src.Perm(n)
	out := make([][]int, k)
	for i, row := range perm {
		out[i%k] = append(out[i%k], row)
	}
	return out
}

// stratifiedAssignment deals each class's rows round-robin so every fold
// mirrors the overall class proportions as closely as the counts allow.
// Classes are visited in sorted order for determinism.
func stratifiedAssignment(labels []string, k int, src *random.Source) [][]int {
	byClass := make(map[string][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	out := make([][]int, k)
	next := 0
	for _, c := range classes {
		rows := byClass[c]
		src.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})
		for _, row := range rows {
			out[next%k] = append(out[next%k], row)
			next++
		}
	}
	return out
}

func (s Spec) planBootstrap(n int, src *random.Source) ([]Fold, error) {
	repeats := s.Repeats
	if repeats < 1 {
		repeats = 25
	}
	folds := make([]Fold, 0, repeats)
	for rep := 0; rep < repeats; rep++ {
		repSrc := src.Child(uint64(rep))
		inBag := make([]bool, n)
		train := make([]int, n)
		for i := range train {
			r := repSrc.IntN(n)
			train[i] = r
			inBag[r] = true
		}
		var test []int
		for i := 0; i < n; i++ {
			if !inBag[i] {
				test = append(test, i)
			}
		}
		if len(test) == 0 {
			// Every row drawn at least once; the resample has nothing to
			// score against and is skipped.
			continue
		}
		sort.Ints(train)
		folds = append(folds, Fold{Repeat: rep, TrainIndices: train, TestIndices: test})
	}
	if len(folds) == 0 {
		return nil, errors.NewInsufficientDataError("resample.Plan", "", n, 2)
	}
	return folds, nil
}

func planLeaveOneOut(n int) []Fold {
	folds := make([]Fold, n)
	for i := 0; i < n; i++ {
		folds[i] = Fold{
			Index:        i,
			TrainIndices: complement(n, []int{i}),
			TestIndices:  []int{i},
		}
	}
	return folds
}

func (s Spec) planLeaveGroupOut(labels []string, src *random.Source) ([]Fold, error) {
	n := len(labels)
	frac := s.TestFraction
	if frac <= 0 || frac >= 1 {
		frac = 0.25
	}
	repeats := s.Repeats
	if repeats < 1 {
		repeats = 10
	}

	byClass := make(map[string][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	folds := make([]Fold, 0, repeats)
	for rep := 0; rep < repeats; rep++ {
		repSrc := src.Child(uint64(rep))
		var test []int
		for _, c := range classes {
			rows := append([]int(nil), byClass[c]...)
			repSrc.Shuffle(len(rows), func(i, j int) {
				rows[i], rows[j] = rows[j], rows[i]
			})
			// Every class contributes to the held-out set, and no class is
			// stripped from the training side entirely.
			take := int(float64(len(rows)) * frac)
			if take < 1 {
				take = 1
			}
			if take >= len(rows) {
				take = len(rows) - 1
			}
			if take > 0 {
				test = append(test, rows[:take]...)
			}
		}
		if len(test) == 0 {
			return nil, errors.NewInsufficientDataError("resample.Plan", "", n, 2)
		}
		folds = append(folds, Fold{Repeat: rep, TrainIndices: complement(n, test), TestIndices: sortedCopy(test)})
	}
	return folds, nil
}

// complement returns the sorted rows of [0,n) not present in exclude.
func complement(n int, exclude []int) []int {
	out := make([]int, 0, n-len(exclude))
	drop := make(map[int]bool, len(exclude))
	for _, e := range exclude {
		drop[e] = true
	}
	for i := 0; i < n; i++ {
		if !drop[i] {
			out = append(out, i)
		}
	}
	return out
}

func sortedCopy(rows []int) []int {
	out := append([]int(nil), rows...)
	sort.Ints(out)
	return out
}
