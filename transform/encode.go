package transform

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultMaxCategories caps the categories kept per column by the encoders.
const DefaultMaxCategories = 100

// categoryCounts returns, per column, the categories ordered by descending
// count then ascending value, with rare ones (count below minCount) removed
// and at most maxCats kept. Missing cells are not categories.
func categoryCounts(rows [][]string, cols int, minCount, maxCats int) [][]string {
	out := make([][]string, cols)
	for j := 0; j < cols; j++ {
		counts := map[string]int{}
		for _, r := range rows {
			v := strings.TrimSpace(r[j])
			if IsMissing(v) {
				continue
			}
			counts[v]++
		}
		cats := make([]string, 0, len(counts))
		for c, n := range counts {
			if n >= minCount {
				cats = append(cats, c)
			}
		}
		sort.Slice(cats, func(a, b int) bool {
			if counts[cats[a]] != counts[cats[b]] {
				return counts[cats[a]] > counts[cats[b]]
			}
			return cats[a] < cats[b]
		})
		if len(cats) > maxCats {
			cats = cats[:maxCats]
		}
		out[j] = cats
	}
	return out
}

// minCount converts a threshold to an absolute count: values below 1 are a
// fraction of rows, zero or negative keeps everything.
func minCount(threshold float64, rows int) int {
	switch {
	case threshold <= 0:
		return 1
	case threshold < 1:
		return int(math.Ceil(threshold * float64(rows)))
	}
	return int(math.Ceil(threshold))
}

func maxCategories(n int) int {
	if n <= 0 {
		return DefaultMaxCategories
	}
	return n
}

func indexOf(cats []string) map[string]int {
	idx := make(map[string]int, len(cats))
	for i, c := range cats {
		idx[c] = i
	}
	return idx
}

// ThresholdOneHot one-hot encodes each column over the categories seen at
// least Threshold times during fit. Unseen, rare and missing values encode as
// all zeros.
type ThresholdOneHot struct {
	Threshold     float64
	MaxCategories int

	Categories [][]string
	Fitted     bool
}

func (t *ThresholdOneHot) Fit(f *Frame) error {
	if f.Rows() == 0 {
		return fmt.Errorf("threshold one hot: %w", ErrEmpty)
	}
	threshold := t.Threshold
	if threshold == 0 {
		threshold = 1
	}
	t.Categories = categoryCounts(f.Strings(), f.Cols(), minCount(threshold, f.Rows()), maxCategories(t.MaxCategories))
	t.Fitted = true
	return nil
}

// Width returns the fitted output width.
func (t *ThresholdOneHot) Width() int {
	n := 0
	for _, c := range t.Categories {
		n += len(c)
	}
	return n
}

func (t *ThresholdOneHot) Transform(f *Frame) (*Frame, error) {
	if !t.Fitted {
		return nil, fmt.Errorf("threshold one hot: %w", ErrNotFitted)
	}
	if err := checkCols("threshold one hot", f, len(t.Categories)); err != nil {
		return nil, err
	}
	idx := make([]map[string]int, len(t.Categories))
	offsets := make([]int, len(t.Categories))
	width := 0
	for j, cats := range t.Categories {
		idx[j] = indexOf(cats)
		offsets[j] = width
		width += len(cats)
	}
	in := f.Strings()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, width)
		for j, s := range row {
			if k, ok := idx[j][strings.TrimSpace(s)]; ok {
				vals[offsets[j]+k] = 1
			}
		}
		out[i] = vals
	}
	return numericFrame(out, width), nil
}

// RobustOrdinal maps each column's kept categories to 0..n-1. Unseen, rare and
// missing values share the code n. A zero Threshold (the "auto" setting) keeps
// every category up to MaxCategories.
type RobustOrdinal struct {
	Threshold     float64
	MaxCategories int

	Categories [][]string
	Fitted     bool
}

func (r *RobustOrdinal) Fit(f *Frame) error {
	if f.Rows() == 0 {
		return fmt.Errorf("robust ordinal: %w", ErrEmpty)
	}
	r.Categories = categoryCounts(f.Strings(), f.Cols(), minCount(r.Threshold, f.Rows()), maxCategories(r.MaxCategories))
	r.Fitted = true
	return nil
}

func (r *RobustOrdinal) Transform(f *Frame) (*Frame, error) {
	if !r.Fitted {
		return nil, fmt.Errorf("robust ordinal: %w", ErrNotFitted)
	}
	if err := checkCols("robust ordinal", f, len(r.Categories)); err != nil {
		return nil, err
	}
	idx := make([]map[string]int, len(r.Categories))
	for j, cats := range r.Categories {
		idx[j] = indexOf(cats)
	}
	in := f.Strings()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, len(row))
		for j, s := range row {
			k, ok := idx[j][strings.TrimSpace(s)]
			if !ok {
				k = len(r.Categories[j])
			}
			vals[j] = float64(k)
		}
		out[i] = vals
	}
	return numericFrame(out, len(r.Categories)), nil
}
