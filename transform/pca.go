package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RobustPCA projects its input onto the top NComponents principal axes. When
// the input has no more columns than NComponents it passes through unchanged.
// Missing values are replaced by the column mean before projection.
type RobustPCA struct {
	NComponents int

	Passthrough bool
	InputCols   int
	Means       []float64
	// Components holds one principal axis per row.
	Components [][]float64
	Fitted     bool
}

func (p *RobustPCA) Fit(f *Frame) error {
	if p.NComponents <= 0 {
		return fmt.Errorf("robust pca: %w: n_components %d", ErrInvalidParam, p.NComponents)
	}
	rows, err := f.Floats()
	if err != nil {
		return fmt.Errorf("robust pca: %w", err)
	}
	n, cols := len(rows), f.Cols()
	p.InputCols = cols
	p.Fitted = true
	if cols <= p.NComponents {
		p.Passthrough = true
		p.Means, p.Components = nil, nil
		return nil
	}
	if n == 0 {
		return fmt.Errorf("robust pca: %w", ErrEmpty)
	}
	p.Passthrough = false

	means := make([]float64, cols)
	for j := range means {
		vals := finite(column(rows, j))
		if len(vals) > 0 {
			means[j] = stat.Mean(vals, nil)
		}
	}
	centered := mat.NewDense(n, cols, nil)
	for i, row := range rows {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = means[j]
			}
			centered.Set(i, j, v-means[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		p.Fitted = false
		return fmt.Errorf("robust pca: svd did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, vc := v.Dims()
	k := p.NComponents
	if k > vc {
		k = vc
	}
	comps := make([][]float64, k)
	for c := 0; c < k; c++ {
		axis := make([]float64, cols)
		maxAbs, sign := 0.0, 1.0
		for j := 0; j < cols; j++ {
			axis[j] = v.At(j, c)
			if a := math.Abs(axis[j]); a > maxAbs {
				maxAbs = a
				sign = math.Copysign(1, axis[j])
			}
		}
		// Deterministic sign: largest loading positive.
		for j := range axis {
			axis[j] *= sign
		}
		comps[c] = axis
	}
	p.Means = means
	p.Components = comps
	return nil
}

// Width returns the fitted output width.
func (p *RobustPCA) Width() int {
	if p.Passthrough {
		return p.InputCols
	}
	return len(p.Components)
}

func (p *RobustPCA) Transform(f *Frame) (*Frame, error) {
	if !p.Fitted {
		return nil, fmt.Errorf("robust pca: %w", ErrNotFitted)
	}
	if err := checkCols("robust pca", f, p.InputCols); err != nil {
		return nil, err
	}
	rows, err := f.Floats()
	if err != nil {
		return nil, fmt.Errorf("robust pca: %w", err)
	}
	if p.Passthrough {
		return numericFrame(rows, p.InputCols), nil
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		proj := make([]float64, len(p.Components))
		for c, axis := range p.Components {
			var s float64
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = p.Means[j]
				}
				s += (v - p.Means[j]) * axis[j]
			}
			proj[c] = s
		}
		out[i] = proj
	}
	return numericFrame(out, len(p.Components)), nil
}
