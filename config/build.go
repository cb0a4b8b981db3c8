package config

import (
	"fmt"

	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/transform"
)

// BuildHeader returns the dataset header declared by cfg.
func BuildHeader(cfg *PipelineConfig) (*dataset.Header, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	h := cfg.EffectiveHeader()
	if h == nil {
		return nil, fmt.Errorf("%w: %s: no header", ErrInvalidConfig, cfg.Name)
	}
	return dataset.NewHeader(h.Columns, h.Target)
}

// BuildFeatureTransform builds the unfitted feature transform of cfg. Branch
// column names are resolved to feature-row positions through h. Step names in
// config must be registered.
func BuildFeatureTransform(reg *Registry, h *dataset.Header, cfg *PipelineConfig) (transform.Transformer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	ft := cfg.FeatureTransform
	steps := make([]transform.Step, 0, len(ft.Steps)+1)
	if len(ft.Columns) > 0 {
		ct := &transform.ColumnTransformer{}
		for i, b := range ft.Columns {
			cols, err := h.FeatureIndices(b.Columns...)
			if err != nil {
				return nil, fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
			}
			chain, err := buildChain(reg, b.Steps)
			if err != nil {
				return nil, fmt.Errorf("branch %d (%s): %w", i, b.Name, err)
			}
			ct.Branches = append(ct.Branches, transform.Branch{Name: b.Name, Columns: cols, Transformer: chain})
		}
		steps = append(steps, transform.Step{Name: "column_transformer", Transformer: ct})
	}
	for i, ref := range ft.Steps {
		t, err := buildStep(reg, ref)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, ref.Label(), err)
		}
		steps = append(steps, transform.Step{Name: ref.Label(), Transformer: t})
	}
	return &transform.Chain{Steps: steps}, nil
}

// BuildLabelTransform builds the unfitted label transform of cfg. It returns
// nil, nil when cfg declares none.
func BuildLabelTransform(reg *Registry, cfg *PipelineConfig) (transform.LabelTransformer, error) {
	if cfg == nil || cfg.LabelTransform == nil {
		return nil, nil
	}
	ref := *cfg.LabelTransform
	b, ok := reg.GetLabel(ref.Name)
	if !ok {
		return nil, fmt.Errorf("label transform: %w: %q not in registry", ErrUnknownStep, ref.Name)
	}
	lt, err := b(ref)
	if err != nil {
		return nil, fmt.Errorf("label transform (%s): %w", ref.Name, err)
	}
	return lt, nil
}

func buildChain(reg *Registry, refs []StepRef) (*transform.Chain, error) {
	chain := &transform.Chain{Steps: make([]transform.Step, 0, len(refs))}
	for i, ref := range refs {
		t, err := buildStep(reg, ref)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, ref.Label(), err)
		}
		chain.Steps = append(chain.Steps, transform.Step{Name: ref.Label(), Transformer: t})
	}
	return chain, nil
}

func buildStep(reg *Registry, ref StepRef) (transform.Transformer, error) {
	if len(ref.Union) > 0 {
		u := &transform.Union{Parts: make([]transform.Step, 0, len(ref.Union))}
		for i, part := range ref.Union {
			t, err := buildStep(reg, part)
			if err != nil {
				return nil, fmt.Errorf("union part %d (%s): %w", i, part.Label(), err)
			}
			u.Parts = append(u.Parts, transform.Step{Name: part.Label(), Transformer: t})
		}
		return u, nil
	}
	if ref.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	b, ok := reg.Get(ref.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q not in registry", ErrUnknownStep, ref.Name)
	}
	return b(ref)
}
