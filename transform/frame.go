package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Frame is a row-major table flowing through transformers. It starts as raw
// string cells (as read from CSV) and becomes numeric once a numeric step has
// run. Frames are never modified in place by transformers.
type Frame struct {
	raw  [][]string
	num  [][]float64
	cols int
}

// FromStrings wraps raw rows. All rows must have the same width.
func FromStrings(rows [][]string) (*Frame, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}
	}
	return &Frame{raw: rows, cols: cols}, nil
}

// FromFloats wraps numeric rows. All rows must have the same width.
func FromFloats(rows [][]float64) (*Frame, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}
	}
	return &Frame{num: rows, cols: cols}, nil
}

func numericFrame(rows [][]float64, cols int) *Frame {
	return &Frame{num: rows, cols: cols}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	if f.num != nil {
		return len(f.num)
	}
	return len(f.raw)
}

// Cols returns the number of columns.
func (f *Frame) Cols() int { return f.cols }

// IsNumeric reports whether the frame holds float cells.
func (f *Frame) IsNumeric() bool { return f.num != nil || f.raw == nil }

// IsMissing reports whether a raw cell is a missing-value token.
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NA", "NaN", "nan", "?":
		return true
	}
	return false
}

// Floats returns numeric cells. Raw cells are parsed strictly: missing tokens
// become NaN, anything else that does not parse is an error.
func (f *Frame) Floats() ([][]float64, error) {
	if f.IsNumeric() {
		return f.num, nil
	}
	out := make([][]float64, len(f.raw))
	for i, row := range f.raw {
		vals := make([]float64, len(row))
		for j, s := range row {
			if IsMissing(s) {
				vals[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %q", ErrNotNumeric, i, j, s)
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return out, nil
}

// LooseFloats returns numeric cells, treating any raw cell that does not parse
// as a finite number as NaN.
func (f *Frame) LooseFloats() [][]float64 {
	if f.IsNumeric() {
		return f.num
	}
	out := make([][]float64, len(f.raw))
	for i, row := range f.raw {
		vals := make([]float64, len(row))
		for j, s := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || math.IsInf(v, 0) {
				v = math.NaN()
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// Strings returns raw cells, formatting numeric cells when needed. NaN is
// formatted as the empty string so it reads as missing.
func (f *Frame) Strings() [][]string {
	if !f.IsNumeric() {
		return f.raw
	}
	out := make([][]string, len(f.num))
	for i, row := range f.num {
		vals := make([]string, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			vals[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		out[i] = vals
	}
	return out
}

// Select returns a frame holding only the given columns, in the given order.
func (f *Frame) Select(cols []int) (*Frame, error) {
	for _, c := range cols {
		if c < 0 || c >= f.cols {
			return nil, fmt.Errorf("%w: column %d out of range [0,%d)", ErrShape, c, f.cols)
		}
	}
	if f.IsNumeric() {
		out := make([][]float64, len(f.num))
		for i, row := range f.num {
			sel := make([]float64, len(cols))
			for j, c := range cols {
				sel[j] = row[c]
			}
			out[i] = sel
		}
		return numericFrame(out, len(cols)), nil
	}
	out := make([][]string, len(f.raw))
	for i, row := range f.raw {
		sel := make([]string, len(cols))
		for j, c := range cols {
			sel[j] = row[c]
		}
		out[i] = sel
	}
	return &Frame{raw: out, cols: len(cols)}, nil
}

// HStack concatenates numeric frames column-wise. All frames must have the same
// number of rows.
func HStack(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return numericFrame(nil, 0), nil
	}
	rows := frames[0].Rows()
	cols := 0
	parts := make([][][]float64, len(frames))
	for k, fr := range frames {
		if fr.Rows() != rows {
			return nil, fmt.Errorf("%w: hstack part %d has %d rows, want %d", ErrShape, k, fr.Rows(), rows)
		}
		vals, err := fr.Floats()
		if err != nil {
			return nil, err
		}
		parts[k] = vals
		cols += fr.Cols()
	}
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, 0, cols)
		for _, p := range parts {
			row = append(row, p[i]...)
		}
		out[i] = row
	}
	return numericFrame(out, cols), nil
}

func checkCols(name string, f *Frame, want int) error {
	if f.Cols() != want {
		return fmt.Errorf("%s: %w: got %d columns, fitted on %d", name, ErrShape, f.Cols(), want)
	}
	return nil
}

// column extracts column j from numeric rows.
func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[j]
	}
	return out
}

// finite returns the finite values of x.
func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
