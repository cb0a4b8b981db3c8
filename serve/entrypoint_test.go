package serve

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/model"
	"github.com/dcshock/autodpp/transform"
)

func writeModel(t *testing.T) string {
	t.Helper()
	h, err := dataset.NewHeader([]string{"y", "age", "job"}, "y")
	if err != nil {
		t.Fatal(err)
	}
	feature := &transform.ColumnTransformer{Branches: []transform.Branch{
		{Name: "numeric", Columns: []int{0}, Transformer: &transform.RobustImputer{}},
		{Name: "categorical", Columns: []int{1}, Transformer: &transform.ThresholdOneHot{}},
	}}
	label := &transform.RobustLabelEncoder{Labels: []string{"no"}, FillLabelValue: "yes", IncludeUnseenClass: true, FillUnseenLabels: true}
	rows := [][]string{{"30", "admin."}, {"40", "services"}, {"", "admin."}}
	m, err := model.Fit("test", h, feature, label, rows, []string{"no", "yes", "no"})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, model.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := model.Save(f, m); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestTransformCSV_MixedRows(t *testing.T) {
	m, err := LoadModel(writeModel(t))
	if err != nil {
		t.Fatal(err)
	}
	in := "y,age,job\nyes,35,admin.\n50,services\nno,,plumber\n"
	var out bytes.Buffer
	if err := TransformCSV(m, strings.NewReader(in), &out); err != nil {
		t.Fatal(err)
	}
	recs, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"1", "35", "1", "0"},
		{"50", "0", "1"},
		{"0", "35", "0", "0"},
	}
	if len(recs) != len(want) {
		t.Fatalf("rows: got %v", recs)
	}
	for i := range want {
		if strings.Join(recs[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d: got %v, want %v", i, recs[i], want[i])
		}
	}
}

func TestTransformCSV_BadRow(t *testing.T) {
	m, err := LoadModel(writeModel(t))
	if err != nil {
		t.Fatal(err)
	}
	err = TransformCSV(m, strings.NewReader("1,2,3,4\n"), &bytes.Buffer{})
	if !errors.Is(err, dataset.ErrInconsistentRow) {
		t.Errorf("expected ErrInconsistentRow, got %v", err)
	}
}

func TestLoadModel_Missing(t *testing.T) {
	if _, err := LoadModel(t.TempDir()); err == nil {
		t.Error("expected error for a directory without a model")
	}
}

func TestDecodeMonitorRecord(t *testing.T) {
	labels := []string{"no", "yes"}
	rec, err := DecodeMonitorRecord("1.0,0.87,0", labels)
	if err != nil {
		t.Fatal(err)
	}
	if rec != (MonitorRecord{GroundTruth: "yes", Score: "0.87", Prediction: "no"}) {
		t.Errorf("got %+v", rec)
	}
	if _, err := DecodeMonitorRecord("2,0.5,0", labels); !errors.Is(err, ErrLabelIndex) {
		t.Errorf("ground truth out of range: got %v", err)
	}
	if _, err := DecodeMonitorRecord("0,0.5,7", labels); !errors.Is(err, ErrLabelIndex) {
		t.Errorf("prediction out of range: got %v", err)
	}
	if _, err := DecodeMonitorRecord("0,0.5", labels); err == nil {
		t.Error("expected error for short record")
	}
}

func TestSource_IsEntrypoint(t *testing.T) {
	src := string(Source())
	if !strings.HasPrefix(src, "package serve") || !strings.Contains(src, "func TransformCSV(") {
		t.Errorf("embedded source does not look like the entry point: %.60q", src)
	}
}
