package serve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dcshock/autodpp/model"
)

// ErrLabelIndex is returned when a monitoring record carries an ordinal code
// outside the label list.
var ErrLabelIndex = errors.New("label index out of range")

// LoadModel reads the fitted model from modelDir.
func LoadModel(modelDir string) (*model.Model, error) {
	m, err := model.ReadFile(filepath.Join(modelDir, model.FileName))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return m, nil
}

// TransformCSV reads CSV rows from r and writes one numeric row per input row
// to w. Rows may carry the target column or not; rows that do are prefixed
// with the encoded target. A first row equal to the header is skipped.
func TransformCSV(m *model.Model, r io.Reader, w io.Writer) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	var (
		features  [][]string
		targets   []string
		hasTarget []bool
	)
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if first {
			first = false
			if slices.Equal(rec, m.Header.Columns) || slices.Equal(rec, m.Header.FeatureNames()) {
				continue
			}
		}
		f, target, ok, err := m.Header.SplitRow(rec)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return fmt.Errorf("line %d: %w", line, err)
		}
		features = append(features, f)
		targets = append(targets, target)
		hasTarget = append(hasTarget, ok)
	}
	if len(features) == 0 {
		return nil
	}

	out, err := m.TransformFeatures(features)
	if err != nil {
		return fmt.Errorf("transform features: %w", err)
	}
	var labelled []string
	for i, ok := range hasTarget {
		if ok {
			labelled = append(labelled, targets[i])
		}
	}
	codes, err := m.TransformTarget(labelled)
	if err != nil {
		return fmt.Errorf("transform target: %w", err)
	}

	cw := csv.NewWriter(w)
	next := 0
	for i, row := range out {
		rec := make([]string, 0, len(row)+1)
		if hasTarget[i] {
			rec = append(rec, formatFloat(codes[next]))
			next++
		}
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// MonitorRecord is a model-monitoring record with ordinal codes mapped back
// to labels.
type MonitorRecord struct {
	GroundTruth string `json:"_c0"`
	Score       string `json:"_c1"`
	Prediction  string `json:"_c2"`
}

// DecodeMonitorRecord parses a CSV line of (ground truth code, score,
// prediction code) and maps both codes to labels.
func DecodeMonitorRecord(line string, labels []string) (MonitorRecord, error) {
	rec, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return MonitorRecord{}, fmt.Errorf("parse monitor record: %w", err)
	}
	if len(rec) < 3 {
		return MonitorRecord{}, fmt.Errorf("parse monitor record: %d fields, want 3", len(rec))
	}
	truth, err := lookupLabel("ground truth", rec[0], labels)
	if err != nil {
		return MonitorRecord{}, err
	}
	pred, err := lookupLabel("prediction", rec[2], labels)
	if err != nil {
		return MonitorRecord{}, err
	}
	return MonitorRecord{GroundTruth: truth, Score: rec[1], Prediction: pred}, nil
}

func lookupLabel(what, field string, labels []string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return "", fmt.Errorf("%s code %q: %w", what, field, err)
	}
	idx := int(v)
	if idx < 0 || idx >= len(labels) {
		return "", fmt.Errorf("%w: failed to map %s label: label is %d but labels length is %d", ErrLabelIndex, what, idx, len(labels))
	}
	return labels[idx], nil
}
