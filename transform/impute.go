package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Imputation strategies.
const (
	StrategyMedian   = "median"
	StrategyMean     = "mean"
	StrategyConstant = "constant"
)

// RobustImputer replaces missing values column by column. Cells that do not
// parse as finite numbers count as missing. A column with no finite values
// during fit is filled with 0.
type RobustImputer struct {
	Strategy  string
	FillValue float64

	Fills  []float64
	Fitted bool
}

func (r *RobustImputer) Fit(f *Frame) error {
	if f.Rows() == 0 {
		return fmt.Errorf("robust imputer: %w", ErrEmpty)
	}
	strategy := r.Strategy
	if strategy == "" {
		strategy = StrategyMedian
	}
	rows := f.LooseFloats()
	fills := make([]float64, f.Cols())
	for j := range fills {
		vals := finite(column(rows, j))
		switch strategy {
		case StrategyConstant:
			fills[j] = r.FillValue
			continue
		case StrategyMean, StrategyMedian:
		default:
			return fmt.Errorf("robust imputer: %w: strategy %q", ErrInvalidParam, r.Strategy)
		}
		if len(vals) == 0 {
			fills[j] = 0
			continue
		}
		if strategy == StrategyMean {
			fills[j] = stat.Mean(vals, nil)
			continue
		}
		fills[j] = median(vals)
	}
	r.Strategy = strategy
	r.Fills = fills
	r.Fitted = true
	return nil
}

func (r *RobustImputer) Transform(f *Frame) (*Frame, error) {
	if !r.Fitted {
		return nil, fmt.Errorf("robust imputer: %w", ErrNotFitted)
	}
	if err := checkCols("robust imputer", f, len(r.Fills)); err != nil {
		return nil, err
	}
	in := f.LooseFloats()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = r.Fills[j]
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return numericFrame(out, len(r.Fills)), nil
}

// median returns the midpoint median of x, which must be non-empty.
func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MissingIndicator emits 1 for missing cells and 0 otherwise, one output
// column per input column.
type MissingIndicator struct {
	InputCols int
	Fitted    bool
}

func (m *MissingIndicator) Fit(f *Frame) error {
	m.InputCols = f.Cols()
	m.Fitted = true
	return nil
}

func (m *MissingIndicator) Transform(f *Frame) (*Frame, error) {
	if !m.Fitted {
		return nil, fmt.Errorf("missing indicator: %w", ErrNotFitted)
	}
	if err := checkCols("missing indicator", f, m.InputCols); err != nil {
		return nil, err
	}
	in := f.LooseFloats()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				vals[j] = 1
			}
		}
		out[i] = vals
	}
	return numericFrame(out, m.InputCols), nil
}
