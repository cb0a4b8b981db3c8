package trainer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dcshock/autodpp/config"
	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/model"
	"github.com/dcshock/autodpp/pipeline"
	"github.com/dcshock/autodpp/processors"
	"github.com/dcshock/autodpp/serve"
	"github.com/dcshock/autodpp/transform"
)

const syntheticDefinition = `
name: synthetic
header:
  columns: [label, n1, n2, n3, c1, c2]
  target: label
feature_transform:
  columns:
    - name: numeric
      columns: [n1, n2, n3]
      steps:
        - robust_imputer
        - robust_standard_scaler
    - name: categorical
      columns: [c1, c2]
      steps:
        - threshold_one_hot
label_transform:
  name: robust_label_encoder
  labels: ["no"]
  fill_label_value: "yes"
  include_unseen_class: true
`

const syntheticRows = `no,1.5,10,100,red,small
yes,2.5,,110,blue,large
no,3.5,30,120,red,small
yes,,40,130,green,large
no,5.5,50,,blue,small
yes,6.5,60,150,red,large
no,7.5,70,160,green,small
yes,8.5,80,170,blue,large
no,9.5,90,180,red,small
yes,10.5,100,190,green,large
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeData(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "train.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func registryWith(t *testing.T, defs ...string) *processors.Registry {
	t.Helper()
	reg := processors.NewRegistry()
	for i, d := range defs {
		if _, err := reg.RegisterSource(fmt.Sprintf("def%d.yaml", i), []byte(d)); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func assertNoModel(t *testing.T, dir string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, model.FileName)); !os.IsNotExist(err) {
		t.Errorf("model file should not exist, stat err=%v", err)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "model")
	res, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, syntheticRows),
		ModelDir:  modelDir,
		Registry:  registryWith(t, syntheticDefinition),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateDone || res.Rows != 10 || res.RunID == "" {
		t.Errorf("result: %+v", res)
	}
	// 3 scaled numeric + 3 colours + 2 sizes.
	if res.Width != 8 {
		t.Errorf("width: got %d, want 8", res.Width)
	}
	for _, p := range []string{
		filepath.Join(modelDir, model.FileName),
		filepath.Join(modelDir, CodeDir, "def0.yaml"),
		filepath.Join(modelDir, CodeDir, serve.EntrypointFile),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing artifact %s: %v", p, err)
		}
	}
	exported, err := os.ReadFile(filepath.Join(modelDir, CodeDir, "def0.yaml"))
	if err != nil || string(exported) != syntheticDefinition {
		t.Errorf("exported definition differs from source (err=%v)", err)
	}

	m, err := serve.LoadModel(modelDir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.TransformFeatures([][]string{{"", "55", "140", "purple", "small"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(out[0]) != res.Width {
		t.Fatalf("held-out row: got %v", out)
	}
	for j, v := range out[0] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("held-out feature %d unresolved: %v", j, v)
		}
	}
}

func TestRun_UnknownProcessor(t *testing.T) {
	modelDir := t.TempDir()
	res, err := Run(context.Background(), Options{
		Processor: "does-not-exist",
		DataDir:   writeData(t, syntheticRows),
		ModelDir:  modelDir,
		Logger:    quietLogger(),
	})
	if !errors.Is(err, ErrConfigurationNotFound) || !errors.Is(err, processors.ErrNotFound) {
		t.Fatalf("expected ErrConfigurationNotFound, got %v", err)
	}
	if ExitCode(err) != ExitConfigurationNotFound || res.State != StateStart {
		t.Errorf("exit=%d state=%v", ExitCode(err), res.State)
	}
	assertNoModel(t, modelDir)
}

func TestRun_DataLoadError(t *testing.T) {
	modelDir := t.TempDir()
	_, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, "no,1,2,3,red\n"),
		ModelDir:  modelDir,
		Registry:  registryWith(t, syntheticDefinition),
		Logger:    quietLogger(),
	})
	if !errors.Is(err, ErrDataLoad) || !errors.Is(err, dataset.ErrInconsistentRow) {
		t.Fatalf("expected ErrDataLoad, got %v", err)
	}
	if ExitCode(err) != ExitDataLoad {
		t.Errorf("exit: got %d", ExitCode(err))
	}
	assertNoModel(t, modelDir)
}

func TestRun_FitError(t *testing.T) {
	def := strings.Replace(syntheticDefinition, "        - robust_imputer\n", "", 1)
	data := strings.Replace(syntheticRows, "no,1.5,10,100", "no,abc,10,100", 1)
	modelDir := t.TempDir()
	res, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, data),
		ModelDir:  modelDir,
		Registry:  registryWith(t, def),
		Logger:    quietLogger(),
	})
	if !errors.Is(err, ErrFit) || !errors.Is(err, transform.ErrNotNumeric) {
		t.Fatalf("expected ErrFit wrapping ErrNotNumeric, got %v", err)
	}
	if ExitCode(err) != ExitFit || res.State != StateDataLoaded {
		t.Errorf("exit=%d state=%v", ExitCode(err), res.State)
	}
	assertNoModel(t, modelDir)
}

func TestRun_ExportFailureRemovesModel(t *testing.T) {
	modelDir := t.TempDir()
	// A file where the code directory should go.
	if err := os.WriteFile(filepath.Join(modelDir, CodeDir), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, syntheticRows),
		ModelDir:  modelDir,
		Registry:  registryWith(t, syntheticDefinition),
		Logger:    quietLogger(),
	})
	if !errors.Is(err, ErrExport) || ExitCode(err) != ExitExport {
		t.Fatalf("expected ErrExport, got %v", err)
	}
	if res.State != StatePersisted || res.ModelPath != "" {
		t.Errorf("result: %+v", res)
	}
	assertNoModel(t, modelDir)
}

func TestRun_PersistError(t *testing.T) {
	parent := t.TempDir()
	modelDir := filepath.Join(parent, "model")
	if err := os.WriteFile(modelDir, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, syntheticRows),
		ModelDir:  modelDir,
		Registry:  registryWith(t, syntheticDefinition),
		Logger:    quietLogger(),
	})
	if !errors.Is(err, ErrPersist) || ExitCode(err) != ExitPersist {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
}

func TestFit_WithoutLabelTransform(t *testing.T) {
	def := syntheticDefinition[:strings.Index(syntheticDefinition, "label_transform:")]
	res, err := Resolve(registryWith(t, def), config.DefaultRegistry(), "synthetic")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != nil {
		t.Fatal("expected no label builder")
	}
	ds, err := LoadDataset(writeData(t, syntheticRows), res.Header)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Fit(ds, res, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Label != nil {
		t.Errorf("label transform should be absent, got %T", m.Label)
	}
}

func TestFit_CustomizeHook(t *testing.T) {
	reg := registryWith(t, syntheticDefinition)
	res, err := Resolve(reg, nil, "synthetic")
	if err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(writeData(t, syntheticRows), res.Header)
	if err != nil {
		t.Fatal(err)
	}
	var sawHeader *dataset.Header
	m, err := Fit(ds, res, func(h *dataset.Header, ft transform.Transformer) (transform.Transformer, error) {
		sawHeader = h
		return &transform.Chain{Steps: []transform.Step{
			{Name: "base", Transformer: ft},
			{Name: "pca", Transformer: &transform.RobustPCA{NComponents: 2}},
		}}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sawHeader != res.Header || m.Width != 2 {
		t.Errorf("customize: header=%v width=%d", sawHeader, m.Width)
	}

	boom := errors.New("boom")
	_, err = Fit(ds, res, func(*dataset.Header, transform.Transformer) (transform.Transformer, error) { return nil, boom })
	if !errors.Is(err, ErrFit) || !errors.Is(err, boom) {
		t.Errorf("customize error: got %v", err)
	}
}

func TestRun_ObserverSeesEveryStage(t *testing.T) {
	obs := &stageRecorder{}
	_, err := Run(context.Background(), Options{
		Processor: "synthetic",
		DataDir:   writeData(t, syntheticRows),
		ModelDir:  t.TempDir(),
		Registry:  registryWith(t, syntheticDefinition),
		Logger:    quietLogger(),
		Observer:  obs,
		RunID:     "fixed-run",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "resolve,load,fit,persist,export"
	if got := strings.Join(obs.stages, ","); got != want {
		t.Errorf("stages: got %s, want %s", got, want)
	}
	if obs.runID != "fixed-run" || len(obs.summaries) != 5 {
		t.Errorf("runID=%q summaries=%v", obs.runID, obs.summaries)
	}
	if !strings.Contains(obs.summaries[1], "10 rows") {
		t.Errorf("load summary: %q", obs.summaries[1])
	}
}

func TestRun_BuiltinDefinitions(t *testing.T) {
	data := bankRows(40)
	for _, name := range []string{"dpp2", "dpp9"} {
		t.Run(name, func(t *testing.T) {
			modelDir := t.TempDir()
			res, err := Run(context.Background(), Options{
				Processor: name,
				DataDir:   writeData(t, data),
				ModelDir:  modelDir,
				Logger:    quietLogger(),
			})
			if err != nil {
				t.Fatal(err)
			}
			if res.Rows != 40 || res.Width == 0 {
				t.Errorf("result: %+v", res)
			}
			if _, err := os.Stat(filepath.Join(modelDir, CodeDir, name+".yaml")); err != nil {
				t.Errorf("exported definition: %v", err)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("usage"), ExitFailure},
		{fmt.Errorf("stage 0 (resolve): %w", ErrConfigurationNotFound), ExitConfigurationNotFound},
		{fmt.Errorf("%w: x", ErrDataLoad), ExitDataLoad},
		{fmt.Errorf("%w: x", ErrFit), ExitFit},
		{fmt.Errorf("%w: x", ErrPersist), ExitPersist},
		{fmt.Errorf("%w: x", ErrExport), ExitExport},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v): got %d, want %d", c.err, got, c.want)
		}
	}
}

func TestState_String(t *testing.T) {
	if StateConfigResolved.String() != "CONFIG_RESOLVED" || StateDone.String() != "DONE" || State(42).String() != "UNKNOWN" {
		t.Error("unexpected state names")
	}
}

type stageRecorder struct {
	runID     string
	stages    []string
	summaries []string
}

func (s *stageRecorder) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	s.runID = runID
	return nil
}

func (s *stageRecorder) AfterPipeline(ctx context.Context, runID string, result interface{}, err error) error {
	return nil
}

func (s *stageRecorder) BeforeStage(ctx context.Context, runID string, stageIndex int, input interface{}) error {
	return nil
}

func (s *stageRecorder) AfterStage(ctx context.Context, runID string, stageIndex int, input, output interface{}, stageErr error, duration time.Duration) error {
	s.stages = append(s.stages, pipeline.StageName(ctx))
	if r, ok := output.(interface{ Summary() string }); ok {
		s.summaries = append(s.summaries, r.Summary())
	}
	return nil
}

// bankRows generates n rows in the bank marketing column layout.
func bankRows(n int) string {
	jobs := []string{"admin.", "technician", "services", "blue-collar"}
	marital := []string{"married", "single", "divorced"}
	education := []string{"university.degree", "high.school", "basic.9y"}
	months := []string{"may", "jun", "jul", "aug"}
	days := []string{"mon", "tue", "wed", "thu", "fri"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		y := "no"
		if i%3 == 0 {
			y = "yes"
		}
		pdays := "999"
		if i%7 == 0 {
			pdays = "6"
		}
		fmt.Fprintf(&b, "%s,%d,%s,%s,%s,no,%s,no,%s,%s,%s,%d,%d,%s,%d,%s,%.1f,%.3f,%.1f,%.3f,%.1f\n",
			y, 25+i%40, jobs[i%len(jobs)], marital[i%len(marital)], education[i%len(education)],
			[]string{"yes", "no"}[i%2], []string{"cellular", "telephone"}[i%2],
			months[i%len(months)], days[i%len(days)],
			60+i*37%900, 1+i%5, pdays, i%3, []string{"nonexistent", "failure", "success"}[i%3],
			1.1-float64(i%4), 93.994-float64(i%3)*0.5, -36.4+float64(i%5), 4.857-float64(i%6)*0.3, 5191.0-float64(i%4)*40)
	}
	return b.String()
}
