package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/harukisato/tabstack/pkg/errors"
)

// Missing-value markers recognized in CSV input.
var missingMarkers = map[string]bool{
	"":    true,
	"NA":  true,
	"?":   true,
	"N/A": true,
	"NaN": true,
}

// ReadCSV parses a header-titled comma-separated dataset. The named label
// column is split out of the features; an empty name reads an unlabeled
// table. A column is Numeric when every non-missing value parses as a
// float; otherwise it is Categorical.
func ReadCSV(r io.Reader, labelColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse csv")
	}
	if len(records) < 2 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv needs a header row and at least one data row")
	}

	header := records[0]
	rows := records[1:]

	labelIdx := -1
	if labelColumn != "" {
		for i, name := range header {
			if name == labelColumn {
				labelIdx = i
				break
			}
		}
		if labelIdx < 0 {
			return nil, errors.NewValidationError("labelColumn", "not found in csv header", labelColumn)
		}
	}

	labels := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.NewDimensionError("dataset.ReadCSV", len(header), len(row), 1)
		}
		if labelIdx >= 0 {
			labels[i] = row[labelIdx]
		}
	}

	cols := make([]Column, 0, len(header)-1)
	for j, name := range header {
		if j == labelIdx {
			continue
		}

		numeric := true
		for _, row := range rows {
			v := row[j]
			if missingMarkers[v] {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
				break
			}
		}

		col := Column{Name: name}
		if numeric {
			col.Kind = Numeric
			col.Nums = make([]float64, len(rows))
			for i, row := range rows {
				if missingMarkers[row[j]] {
					col.Nums[i] = math.NaN()
					continue
				}
				v, _ := strconv.ParseFloat(row[j], 64)
				col.Nums[i] = v
			}
		} else {
			col.Kind = Categorical
			col.Cats = make([]string, len(rows))
			for i, row := range rows {
				if missingMarkers[row[j]] {
					col.Cats[i] = ""
					continue
				}
				col.Cats[i] = row[j]
			}
		}
		cols = append(cols, col)
	}

	return NewTable(labelColumn, labels, cols...)
}

// ReadCSVFile opens and parses a CSV file.
func ReadCSVFile(path, labelColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, labelColumn)
}
