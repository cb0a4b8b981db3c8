package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// QuantileExtremeValues log-transforms columns holding extreme values. A column
// is extreme when some finite value lies more than ThresholdStd standard
// deviations outside the mean of its values inside the [1-Quantile, Quantile]
// band. Extreme columns are mapped through sign(x)*log1p(|x|); other columns
// pass through unchanged. Non-numeric cells become NaN.
type QuantileExtremeValues struct {
	Quantile     float64
	ThresholdStd float64

	Extreme []bool
	Fitted  bool
}

func (q *QuantileExtremeValues) params() (float64, float64, error) {
	quant, thr := q.Quantile, q.ThresholdStd
	if quant == 0 {
		quant = 0.95
	}
	if thr == 0 {
		thr = 4
	}
	if quant <= 0.5 || quant >= 1 {
		return 0, 0, fmt.Errorf("quantile extreme values: %w: quantile %v not in (0.5, 1)", ErrInvalidParam, quant)
	}
	if thr < 0 {
		return 0, 0, fmt.Errorf("quantile extreme values: %w: threshold_std %v", ErrInvalidParam, thr)
	}
	return quant, thr, nil
}

func (q *QuantileExtremeValues) Fit(f *Frame) error {
	quant, thr, err := q.params()
	if err != nil {
		return err
	}
	rows := f.LooseFloats()
	extreme := make([]bool, f.Cols())
	for j := range extreme {
		vals := finite(column(rows, j))
		if len(vals) < 2 {
			continue
		}
		sort.Float64s(vals)
		lo := stat.Quantile(1-quant, stat.Empirical, vals, nil)
		hi := stat.Quantile(quant, stat.Empirical, vals, nil)
		band := make([]float64, 0, len(vals))
		for _, v := range vals {
			if v >= lo && v <= hi {
				band = append(band, v)
			}
		}
		mean, std := stat.PopMeanStdDev(band, nil)
		if std == 0 {
			std = 1
		}
		vmin, vmax := vals[0], vals[len(vals)-1]
		extreme[j] = vmax > mean+thr*std || vmin < mean-thr*std
	}
	q.Quantile, q.ThresholdStd = quant, thr
	q.Extreme = extreme
	q.Fitted = true
	return nil
}

func (q *QuantileExtremeValues) Transform(f *Frame) (*Frame, error) {
	if !q.Fitted {
		return nil, fmt.Errorf("quantile extreme values: %w", ErrNotFitted)
	}
	if err := checkCols("quantile extreme values", f, len(q.Extreme)); err != nil {
		return nil, err
	}
	in := f.LooseFloats()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, len(row))
		for j, v := range row {
			if q.Extreme[j] {
				v = signedLog1p(v)
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return numericFrame(out, len(q.Extreme)), nil
}

func signedLog1p(v float64) float64 {
	if v < 0 {
		return -math.Log1p(-v)
	}
	return math.Log1p(v)
}
