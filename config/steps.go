package config

import (
	"fmt"
	"time"

	"github.com/dcshock/autodpp/transform"
)

// Step names understood by DefaultRegistry.
const (
	StepRobustImputer         = "robust_imputer"
	StepMissingIndicator      = "robust_missing_indicator"
	StepQuantileExtremeValues = "quantile_extreme_values"
	StepThresholdOneHot       = "threshold_one_hot"
	StepRobustOrdinal         = "robust_ordinal"
	StepDateTimeVectorizer    = "datetime_vectorizer"
	StepRobustPCA             = "robust_pca"
	StepStandardScaler        = "robust_standard_scaler"
	LabelRobustEncoder        = "robust_label_encoder"
)

// DefaultRegistry returns a registry holding every built-in transformer.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(StepRobustImputer, buildImputer)
	r.Register(StepMissingIndicator, func(StepRef) (transform.Transformer, error) {
		return &transform.MissingIndicator{}, nil
	})
	r.Register(StepQuantileExtremeValues, buildExtremeValues)
	r.Register(StepThresholdOneHot, buildOneHot)
	r.Register(StepRobustOrdinal, buildOrdinal)
	r.Register(StepDateTimeVectorizer, buildDateTime)
	r.Register(StepRobustPCA, buildPCA)
	r.Register(StepStandardScaler, func(StepRef) (transform.Transformer, error) {
		return &transform.RobustStandardScaler{}, nil
	})
	r.RegisterLabel(LabelRobustEncoder, buildLabelEncoder)
	return r
}

func buildImputer(ref StepRef) (transform.Transformer, error) {
	var p struct {
		Strategy  string  `yaml:"strategy"`
		FillValue float64 `yaml:"fill_value"`
	}
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	switch p.Strategy {
	case "", transform.StrategyMedian, transform.StrategyMean, transform.StrategyConstant:
	default:
		return nil, fmt.Errorf("%s: unknown strategy %q", ref.Name, p.Strategy)
	}
	return &transform.RobustImputer{Strategy: p.Strategy, FillValue: p.FillValue}, nil
}

func buildExtremeValues(ref StepRef) (transform.Transformer, error) {
	var p struct {
		Quantile     float64 `yaml:"quantile"`
		ThresholdStd float64 `yaml:"threshold_std"`
	}
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	return &transform.QuantileExtremeValues{Quantile: p.Quantile, ThresholdStd: p.ThresholdStd}, nil
}

type encoderParams struct {
	Threshold     Threshold `yaml:"threshold"`
	MaxCategories int       `yaml:"max_categories"`
}

func buildOneHot(ref StepRef) (transform.Transformer, error) {
	var p encoderParams
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	return &transform.ThresholdOneHot{Threshold: float64(p.Threshold), MaxCategories: p.MaxCategories}, nil
}

func buildOrdinal(ref StepRef) (transform.Transformer, error) {
	var p encoderParams
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	return &transform.RobustOrdinal{Threshold: float64(p.Threshold), MaxCategories: p.MaxCategories}, nil
}

func buildDateTime(ref StepRef) (transform.Transformer, error) {
	var p struct {
		Mode            string   `yaml:"mode"`
		Fields          []string `yaml:"fields"`
		DefaultDateTime string   `yaml:"default_datetime"`
	}
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	d := &transform.DateTimeVectorizer{Mode: p.Mode, Fields: p.Fields}
	if p.DefaultDateTime != "" {
		t, err := parseDefaultDateTime(p.DefaultDateTime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref.Name, err)
		}
		d.DefaultDateTime = t
	}
	return d, nil
}

func parseDefaultDateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("default_datetime %q: want YYYY-MM-DD or RFC 3339", s)
}

func buildPCA(ref StepRef) (transform.Transformer, error) {
	var p struct {
		NComponents int `yaml:"n_components"`
	}
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	if p.NComponents <= 0 {
		return nil, fmt.Errorf("%s: n_components must be positive", ref.Name)
	}
	return &transform.RobustPCA{NComponents: p.NComponents}, nil
}

func buildLabelEncoder(ref StepRef) (transform.LabelTransformer, error) {
	var p struct {
		Labels             []string `yaml:"labels"`
		FillLabelValue     string   `yaml:"fill_label_value"`
		IncludeUnseenClass bool     `yaml:"include_unseen_class"`
		FillUnseenLabels   *bool    `yaml:"fill_unseen_labels"`
	}
	if err := ref.DecodeParams(&p); err != nil {
		return nil, err
	}
	fill := true
	if p.FillUnseenLabels != nil {
		fill = *p.FillUnseenLabels
	}
	return &transform.RobustLabelEncoder{
		Labels:             p.Labels,
		FillLabelValue:     p.FillLabelValue,
		IncludeUnseenClass: p.IncludeUnseenClass,
		FillUnseenLabels:   fill,
	}, nil
}
