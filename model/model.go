// Package model holds the fitted model produced by a training run and its
// on-disk encoding.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/transform"
)

// ErrTargetMissing is returned when target values are needed but the header
// declares no target column.
var ErrTargetMissing = errors.New("header declares no target")

// Model is a header plus fitted feature and label transforms. Label is nil
// when the definition declares no label transform; targets are then parsed as
// numbers.
type Model struct {
	Processor string
	Header    dataset.Header
	Feature   transform.Transformer
	Label     transform.LabelTransformer
	// Width is the fitted feature output width.
	Width int
}

// Fit fits label (when present) then features on the given training data and
// returns the resulting model. features holds feature rows; target may be nil
// when h has no target.
func Fit(processor string, h *dataset.Header, feature transform.Transformer, label transform.LabelTransformer, features [][]string, target []string) (*Model, error) {
	if feature == nil {
		return nil, fmt.Errorf("feature transform is nil")
	}
	if label != nil {
		if target == nil {
			return nil, fmt.Errorf("label transform: %w", ErrTargetMissing)
		}
		if err := label.Fit(target); err != nil {
			return nil, fmt.Errorf("fit label transform: %w", err)
		}
	}
	f, err := transform.FromStrings(features)
	if err != nil {
		return nil, fmt.Errorf("feature rows: %w", err)
	}
	if f.Cols() != h.NumFeatures() {
		return nil, fmt.Errorf("feature rows: %w: %d columns, header declares %d features", transform.ErrShape, f.Cols(), h.NumFeatures())
	}
	out, err := transform.FitTransform(feature, f)
	if err != nil {
		return nil, fmt.Errorf("fit feature transform: %w", err)
	}
	return &Model{Processor: processor, Header: *h, Feature: feature, Label: label, Width: out.Cols()}, nil
}

// TransformFeatures applies the fitted feature transform to feature rows.
func (m *Model) TransformFeatures(rows [][]string) ([][]float64, error) {
	f, err := transform.FromStrings(rows)
	if err != nil {
		return nil, err
	}
	out, err := m.Feature.Transform(f)
	if err != nil {
		return nil, err
	}
	return out.Floats()
}

// TransformTarget encodes target values with the label transform, or parses
// them as numbers when there is none.
func (m *Model) TransformTarget(y []string) ([]float64, error) {
	if m.Label != nil {
		return m.Label.Transform(y)
	}
	out := make([]float64, len(y))
	for i, v := range y {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("target row %d: %w: %q", i, transform.ErrNotNumeric, v)
		}
		out[i] = f
	}
	return out, nil
}

// Classes returns the label classes when the label transform is a
// RobustLabelEncoder, otherwise nil.
func (m *Model) Classes() []string {
	if enc, ok := m.Label.(*transform.RobustLabelEncoder); ok {
		return enc.Classes
	}
	return nil
}
