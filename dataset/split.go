package dataset

import (
	"sort"

	"github.com/harukisato/tabstack/core/random"
	"github.com/harukisato/tabstack/pkg/errors"
)

// Splitter partitions labeled rows into stratified train/test sets. The split
// preserves each label class's proportion within rounding tolerance and is
// deterministic for a given random source.
type Splitter struct {
	TrainFraction float64
}

// NewSplitter creates a splitter holding out 1-trainFraction of the rows.
func NewSplitter(trainFraction float64) *Splitter {
	return &Splitter{TrainFraction: trainFraction}
}

// Split returns stratified train and test tables. Every class must have at
// least 2 rows; otherwise stratification is impossible and an
// InsufficientDataError is returned.
func (s *Splitter) Split(t *Table, src *random.Source) (train, test *Table, err error) {
	if s.TrainFraction <= 0 || s.TrainFraction >= 1 {
		return nil, nil, errors.NewValidationError("trainFraction", "must be in (0, 1)", s.TrainFraction)
	}
	if t.NumRows() == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "Splitter.Split")
	}

	classRows := make(map[string][]int)
	for i, l := range t.Labels {
		classRows[l] = append(classRows[l], i)
	}
	for class, rows := range classRows {
		if len(rows) < 2 {
			return nil, nil, errors.NewInsufficientDataError("Splitter.Split", class, len(rows), 2)
		}
	}

	// Iterate classes in sorted order so the draw sequence is reproducible.
	classes := make([]string, 0, len(classRows))
	for c := range classRows {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	var trainRows, testRows []int
	for _, class := range classes {
		rows := append([]int(nil), classRows[class]...)
		src.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})

		nTrain := int(float64(len(rows))*s.TrainFraction + 0.5)
		// Both sides keep at least one row of every class.
		if nTrain == len(rows) {
			nTrain--
		}
		if nTrain == 0 {
			nTrain = 1
		}

		trainRows = append(trainRows, rows[:nTrain]...)
		testRows = append(testRows, rows[nTrain:]...)
	}

	sort.Ints(trainRows)
	sort.Ints(testRows)
	return t.Select(trainRows), t.Select(testRows), nil
}
