package dataset

import "fmt"

// Header is the ordered list of column names of a data file plus the name of the
// target column. Given names it returns their positions, either in the full row
// or in the feature row (the row with the target removed).
type Header struct {
	Columns []string
	Target  string
}

// NewHeader validates columns and target. Target may be empty for unlabelled data.
func NewHeader(columns []string, target string) (*Header, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("header: %w", ErrEmptyHeader)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("header: %w: %q", ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	if _, ok := seen[target]; target != "" && !ok {
		return nil, fmt.Errorf("header: target %w: %q", ErrUnknownColumn, target)
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Header{Columns: cols, Target: target}, nil
}

// NumColumns is the width of a full row.
func (h *Header) NumColumns() int { return len(h.Columns) }

// NumFeatures is the width of a feature row.
func (h *Header) NumFeatures() int {
	if h.TargetIndex() < 0 {
		return len(h.Columns)
	}
	return len(h.Columns) - 1
}

// TargetIndex returns the target's position in the full row, or -1 when the
// header has no target.
func (h *Header) TargetIndex() int {
	if h.Target == "" {
		return -1
	}
	for i, c := range h.Columns {
		if c == h.Target {
			return i
		}
	}
	return -1
}

// FeatureNames returns the column names without the target, in row order.
func (h *Header) FeatureNames() []string {
	out := make([]string, 0, len(h.Columns))
	for _, c := range h.Columns {
		if c != h.Target || h.Target == "" {
			out = append(out, c)
		}
	}
	return out
}

// ColumnIndices returns the positions of names in the full row.
func (h *Header) ColumnIndices(names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		idx := -1
		for i, c := range h.Columns {
			if c == n {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, n)
		}
		out = append(out, idx)
	}
	return out, nil
}

// FeatureIndices returns the positions of names in the feature row. Naming the
// target is an error.
func (h *Header) FeatureIndices(names ...string) ([]int, error) {
	features := h.FeatureNames()
	out := make([]int, 0, len(names))
	for _, n := range names {
		if h.Target != "" && n == h.Target {
			return nil, fmt.Errorf("%w: %q", ErrTargetAsFeature, n)
		}
		idx := -1
		for i, c := range features {
			if c == n {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, n)
		}
		out = append(out, idx)
	}
	return out, nil
}

// SplitRow separates a row into features and target. A row as wide as the
// header is treated as carrying the target; a row as wide as the feature row is
// returned as-is with hasTarget false.
func (h *Header) SplitRow(row []string) (features []string, target string, hasTarget bool, err error) {
	ti := h.TargetIndex()
	switch {
	case len(row) == len(h.Columns) && ti >= 0:
		features = make([]string, 0, len(row)-1)
		features = append(features, row[:ti]...)
		features = append(features, row[ti+1:]...)
		return features, row[ti], true, nil
	case len(row) == h.NumFeatures():
		return row, "", false, nil
	default:
		return nil, "", false, fmt.Errorf("%w: row has %d fields, header declares %d columns (%d features)",
			ErrInconsistentRow, len(row), len(h.Columns), h.NumFeatures())
	}
}
