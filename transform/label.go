package transform

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// ErrUnseenLabel is returned when a label encoder meets a value it cannot map
// and is not configured to fill it.
var ErrUnseenLabel = errors.New("unseen label")

// RobustLabelEncoder maps target values to integer codes.
//
// Classes are Labels when given, otherwise the sorted distinct values seen
// during fit. With IncludeUnseenClass, FillLabelValue is appended as a class
// of its own (unless already present) and values outside the classes encode
// to it. With FillUnseenLabels, Inverse maps codes outside the classes to
// FillLabelValue instead of failing.
type RobustLabelEncoder struct {
	Labels             []string
	FillLabelValue     string
	IncludeUnseenClass bool
	FillUnseenLabels   bool

	Classes []string
	Fitted  bool
}

func (e *RobustLabelEncoder) Fit(y []string) error {
	var classes []string
	if len(e.Labels) > 0 {
		classes = slices.Clone(e.Labels)
	} else {
		seen := map[string]bool{}
		for _, v := range y {
			v = strings.TrimSpace(v)
			if !seen[v] {
				seen[v] = true
				classes = append(classes, v)
			}
		}
		sort.Strings(classes)
	}
	if e.IncludeUnseenClass && !slices.Contains(classes, e.FillLabelValue) {
		classes = append(classes, e.FillLabelValue)
	}
	if len(classes) == 0 {
		return fmt.Errorf("robust label encoder: %w", ErrEmpty)
	}
	e.Classes = classes
	e.Fitted = true
	return nil
}

func (e *RobustLabelEncoder) Transform(y []string) ([]float64, error) {
	if !e.Fitted {
		return nil, fmt.Errorf("robust label encoder: %w", ErrNotFitted)
	}
	idx := indexOf(e.Classes)
	fill, hasFill := -1, false
	if e.IncludeUnseenClass {
		fill, hasFill = idx[e.FillLabelValue], true
	}
	out := make([]float64, len(y))
	for i, v := range y {
		k, ok := idx[strings.TrimSpace(v)]
		switch {
		case ok:
		case hasFill:
			k = fill
		default:
			return nil, fmt.Errorf("robust label encoder: %w: %q at row %d", ErrUnseenLabel, v, i)
		}
		out[i] = float64(k)
	}
	return out, nil
}

func (e *RobustLabelEncoder) Inverse(codes []float64) ([]string, error) {
	if !e.Fitted {
		return nil, fmt.Errorf("robust label encoder: %w", ErrNotFitted)
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		k := int(c)
		if c == math.Trunc(c) && k >= 0 && k < len(e.Classes) {
			out[i] = e.Classes[k]
			continue
		}
		if !e.FillUnseenLabels {
			return nil, fmt.Errorf("robust label encoder: %w: code %v at row %d", ErrUnseenLabel, c, i)
		}
		out[i] = e.FillLabelValue
	}
	return out, nil
}
