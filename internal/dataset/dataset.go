// Package dataset loads binary training data and splits it into mini-batches.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrNotBinary is returned by ValidateBinary for entries outside {0, 1}.
var ErrNotBinary = errors.New("dataset: entry is not 0 or 1")

// CSVOptions controls how LoadCSV interprets its input.
type CSVOptions struct {
	SkipHeader  bool // Drop the first record
	SkipColumns int  // Leading columns to ignore, e.g. a label
	MaxRows     int  // Maximum rows to load (0 = all)
}

// LoadCSV reads a numeric CSV table into a rows×cols matrix.
//
// Every record must have the same number of fields. Fields are trimmed
// before parsing.
func LoadCSV(r io.Reader, opts CSVOptions) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if opts.SkipHeader && len(records) > 0 {
		records = records[1:]
	}
	if opts.MaxRows > 0 && len(records) > opts.MaxRows {
		records = records[:opts.MaxRows]
	}
	if len(records) == 0 {
		return nil, errors.New("dataset: CSV has no data rows")
	}

	cols := len(records[0]) - opts.SkipColumns
	if cols <= 0 {
		return nil, fmt.Errorf("dataset: %d fields leave no columns after skipping %d", len(records[0]), opts.SkipColumns)
	}
	data := make([]float64, 0, len(records)*cols)
	for i, record := range records {
		if len(record)-opts.SkipColumns != cols {
			return nil, fmt.Errorf("invalid record length at row %d: got %d, want %d", i+1, len(record), cols+opts.SkipColumns)
		}
		for j, field := range record[opts.SkipColumns:] {
			x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value at row %d, column %d: %w", i+1, j+1+opts.SkipColumns, err)
			}
			data = append(data, x)
		}
	}
	return mat.NewDense(len(records), cols, data), nil
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, opts CSVOptions) (*mat.Dense, error) {
	//nolint:gosec // G304: Path comes from user input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	x, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// Binarize returns a copy of x with entries above threshold set to 1 and
// all others set to 0.
func Binarize(x mat.Matrix, threshold float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > threshold {
			return 1
		}
		return 0
	}, x)
	return &out
}

// ValidateBinary returns an error naming the first entry that is not 0 or 1.
func ValidateBinary(x mat.Matrix) error {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := x.At(i, j); v != 0 && v != 1 {
				return fmt.Errorf("%w: (%d,%d) = %v", ErrNotBinary, i, j, v)
			}
		}
	}
	return nil
}

// Batches splits x into contiguous row blocks of batchSize in dataset order.
// A final block shorter than batchSize is dropped. The blocks are views
// into x and share its storage.
func Batches(x *mat.Dense, batchSize int) ([]*mat.Dense, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0 (got %d)", batchSize)
	}
	r, c := x.Dims()
	n := r / batchSize
	out := make([]*mat.Dense, n)
	for k := 0; k < n; k++ {
		out[k] = x.Slice(k*batchSize, (k+1)*batchSize, 0, c).(*mat.Dense)
	}
	return out, nil
}

// Repeat returns an n×len(pattern) matrix whose rows all equal pattern.
func Repeat(pattern []float64, n int) *mat.Dense {
	out := mat.NewDense(n, len(pattern), nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, pattern)
	}
	return out
}
