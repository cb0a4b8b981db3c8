package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned when a definition is structurally incomplete.
	ErrInvalidConfig = errors.New("invalid pipeline definition")

	// ErrUnknownStep is returned when a definition names a step no builder is registered for.
	ErrUnknownStep = errors.New("unknown step")
)

// PipelineConfig is the root structure for a pipeline definition (e.g. from YAML).
type PipelineConfig struct {
	Name string `yaml:"name"`

	// Header declares the column layout of the training data.
	Header *HeaderConfig `yaml:"header"`

	// AllColumnsHeader, when present, is preferred over Header.
	AllColumnsHeader *HeaderConfig `yaml:"all_columns_header"`

	FeatureTransform FeatureConfig `yaml:"feature_transform"`

	// LabelTransform is optional; nil means the target is used as-is.
	LabelTransform *StepRef `yaml:"label_transform"`
}

// HeaderConfig is the declared column order plus the target column name.
type HeaderConfig struct {
	Columns []string `yaml:"columns"`
	Target  string   `yaml:"target"`
}

// FeatureConfig is a column transformer (Columns) followed by Steps applied
// to its concatenated output. Either part may be empty, not both.
type FeatureConfig struct {
	Columns []BranchConfig `yaml:"columns"`
	Steps   []StepRef      `yaml:"steps"`
}

// BranchConfig routes named feature columns through a chain of steps.
type BranchConfig struct {
	Name    string    `yaml:"name"`
	Columns []string  `yaml:"columns"`
	Steps   []StepRef `yaml:"steps"`
}

// StepRef is a single step entry: a plain name, a name plus parameters, or a
// union of sub-steps. In YAML, a step can be written as:
//   - robust_standard_scaler
//   - name: robust_pca
//     n_components: 98
//   - union: [robust_imputer, robust_missing_indicator]
type StepRef struct {
	Name  string    `yaml:"name"`
	Union []StepRef `yaml:"union"`

	params *yaml.Node
}

// UnmarshalYAML allows a step to be a string (step name only) or a mapping.
// The mapping is kept so builders can decode their own parameters.
func (s *StepRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StepRef
	if err := value.Decode((*raw)(s)); err != nil {
		return err
	}
	s.params = value
	return nil
}

// DecodeParams decodes the step's mapping into v. A bare-name step leaves v
// untouched.
func (s StepRef) DecodeParams(v any) error {
	if s.params == nil {
		return nil
	}
	if err := s.params.Decode(v); err != nil {
		return fmt.Errorf("step %q parameters: %w", s.Name, err)
	}
	return nil
}

// Label returns the name used for the step in error messages and chains.
func (s StepRef) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Union) > 0 {
		return "union"
	}
	return "<unnamed>"
}

// Threshold is a category-count threshold that unmarshals from a number or
// the string "auto" (zero).
type Threshold float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Threshold) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("threshold: want a scalar at line %d", value.Line)
	}
	s := strings.TrimSpace(value.Value)
	if strings.EqualFold(s, "auto") {
		*t = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("threshold %q: want a number or \"auto\"", s)
	}
	*t = Threshold(f)
	return nil
}

// EffectiveHeader returns AllColumnsHeader when set, otherwise Header.
func (c *PipelineConfig) EffectiveHeader() *HeaderConfig {
	if c.AllColumnsHeader != nil {
		return c.AllColumnsHeader
	}
	return c.Header
}

// Validate checks that the definition names itself, declares a header and
// has at least one feature step.
func (c *PipelineConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	h := c.EffectiveHeader()
	if h == nil || len(h.Columns) == 0 {
		return fmt.Errorf("%w: %s: header columns required", ErrInvalidConfig, c.Name)
	}
	ft := c.FeatureTransform
	if len(ft.Columns) == 0 && len(ft.Steps) == 0 {
		return fmt.Errorf("%w: %s: feature_transform has no columns or steps", ErrInvalidConfig, c.Name)
	}
	for i, b := range ft.Columns {
		if len(b.Columns) == 0 {
			return fmt.Errorf("%w: %s: branch %d (%s) selects no columns", ErrInvalidConfig, c.Name, i, b.Name)
		}
	}
	return nil
}

// ParsePipelineConfig parses YAML bytes into a single PipelineConfig and validates it.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
