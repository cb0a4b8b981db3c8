package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RobustStandardScaler centres each column on its mean and scales it to unit
// (population) variance. Zero-variance columns are scaled by 1. Input must be
// numeric: raw cells that are not numbers or missing tokens fail the fit or
// transform. Missing values stay NaN.
type RobustStandardScaler struct {
	Means  []float64
	Scales []float64
	Fitted bool
}

func (s *RobustStandardScaler) Fit(f *Frame) error {
	rows, err := f.Floats()
	if err != nil {
		return fmt.Errorf("robust standard scaler: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("robust standard scaler: %w", ErrEmpty)
	}
	cols := f.Cols()
	means := make([]float64, cols)
	scales := make([]float64, cols)
	for j := 0; j < cols; j++ {
		vals := finite(column(rows, j))
		scales[j] = 1
		if len(vals) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(vals, nil)
		means[j] = mean
		if std > 0 {
			scales[j] = std
		}
	}
	s.Means, s.Scales = means, scales
	s.Fitted = true
	return nil
}

func (s *RobustStandardScaler) Transform(f *Frame) (*Frame, error) {
	if !s.Fitted {
		return nil, fmt.Errorf("robust standard scaler: %w", ErrNotFitted)
	}
	if err := checkCols("robust standard scaler", f, len(s.Means)); err != nil {
		return nil, err
	}
	rows, err := f.Floats()
	if err != nil {
		return nil, fmt.Errorf("robust standard scaler: %w", err)
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		vals := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				vals[j] = v
				continue
			}
			vals[j] = (v - s.Means[j]) / s.Scales[j]
		}
		out[i] = vals
	}
	return numericFrame(out, len(s.Means)), nil
}
