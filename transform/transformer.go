package transform

import (
	"encoding/gob"
	"fmt"
)

// Transformer is a fit/apply object over frames. Fit learns state from the
// frame; Transform applies that state to a (possibly different) frame with the
// same column layout. Fitted state lives in exported fields so the model
// serializer can persist it.
type Transformer interface {
	Fit(f *Frame) error
	Transform(f *Frame) (*Frame, error)
}

// LabelTransformer maps target values to numeric codes and back.
type LabelTransformer interface {
	Fit(y []string) error
	Transform(y []string) ([]float64, error)
	Inverse(codes []float64) ([]string, error)
}

// FitTransform fits t on f and returns t applied to f.
func FitTransform(t Transformer, f *Frame) (*Frame, error) {
	if err := t.Fit(f); err != nil {
		return nil, err
	}
	return t.Transform(f)
}

// Step is a named element of a Chain.
type Step struct {
	Name        string
	Transformer Transformer
}

// Chain applies its steps in order, each fitted on the previous step's output.
type Chain struct {
	Steps []Step
}

func (c *Chain) Fit(f *Frame) error {
	cur := f
	for i, s := range c.Steps {
		next, err := FitTransform(s.Transformer, cur)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, s.Name, err)
		}
		cur = next
	}
	return nil
}

func (c *Chain) Transform(f *Frame) (*Frame, error) {
	cur := f
	for i, s := range c.Steps {
		next, err := s.Transformer.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, s.Name, err)
		}
		cur = next
	}
	return cur, nil
}

// Union fits each part on the same input and concatenates their outputs
// column-wise, in part order.
type Union struct {
	Parts []Step
}

func (u *Union) Fit(f *Frame) error {
	for i, p := range u.Parts {
		if err := p.Transformer.Fit(f); err != nil {
			return fmt.Errorf("union part %d (%s): %w", i, p.Name, err)
		}
	}
	return nil
}

func (u *Union) Transform(f *Frame) (*Frame, error) {
	outs := make([]*Frame, len(u.Parts))
	for i, p := range u.Parts {
		out, err := p.Transformer.Transform(f)
		if err != nil {
			return nil, fmt.Errorf("union part %d (%s): %w", i, p.Name, err)
		}
		outs[i] = out
	}
	return HStack(outs...)
}

// Branch routes a subset of input columns to a transformer.
type Branch struct {
	Name        string
	Columns     []int
	Transformer Transformer
}

// ColumnTransformer applies each branch to its column subset and concatenates
// the branch outputs in branch order. Columns no branch names are dropped.
// Branches may overlap.
type ColumnTransformer struct {
	Branches []Branch
	// InputCols is the fitted input width.
	InputCols int
	Fitted    bool
}

func (c *ColumnTransformer) Fit(f *Frame) error {
	for i, b := range c.Branches {
		sub, err := f.Select(b.Columns)
		if err != nil {
			return fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
		}
		if err := b.Transformer.Fit(sub); err != nil {
			return fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
		}
	}
	c.InputCols = f.Cols()
	c.Fitted = true
	return nil
}

func (c *ColumnTransformer) Transform(f *Frame) (*Frame, error) {
	if !c.Fitted {
		return nil, fmt.Errorf("column transformer: %w", ErrNotFitted)
	}
	if err := checkCols("column transformer", f, c.InputCols); err != nil {
		return nil, err
	}
	outs := make([]*Frame, len(c.Branches))
	for i, b := range c.Branches {
		sub, err := f.Select(b.Columns)
		if err != nil {
			return nil, fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
		}
		out, err := b.Transformer.Transform(sub)
		if err != nil {
			return nil, fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
		}
		outs[i] = out
	}
	return HStack(outs...)
}

func init() {
	gob.Register(&Chain{})
	gob.Register(&Union{})
	gob.Register(&ColumnTransformer{})
	gob.Register(&RobustImputer{})
	gob.Register(&MissingIndicator{})
	gob.Register(&QuantileExtremeValues{})
	gob.Register(&ThresholdOneHot{})
	gob.Register(&RobustOrdinal{})
	gob.Register(&DateTimeVectorizer{})
	gob.Register(&RobustPCA{})
	gob.Register(&RobustStandardScaler{})
	gob.Register(&RobustLabelEncoder{})
}
