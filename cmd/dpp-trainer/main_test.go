package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dcshock/autodpp/model"
	"github.com/dcshock/autodpp/observer"
	"github.com/dcshock/autodpp/trainer"
)

const definition = `
name: colours
header:
  columns: [label, size, colour]
  target: label
feature_transform:
  columns:
    - name: numeric
      columns: [size]
      steps: [robust_imputer, robust_standard_scaler]
    - name: categorical
      columns: [colour]
      steps: [threshold_one_hot]
label_transform:
  name: robust_label_encoder
  labels: ["no", "yes"]
`

const rows = `no,1,red
yes,2,blue
no,3,red
yes,,green
no,5,blue
yes,6,red
`

type fixture struct {
	configDir, dataDir, modelDir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
		modelDir:  filepath.Join(root, "model"),
	}
	for _, d := range []string{f.configDir, f.dataDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(f.configDir, "colours.yaml"), []byte(definition), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.dataDir, "train.csv"), []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestTrainAndApply(t *testing.T) {
	f := newFixture(t)
	ledgerPath := filepath.Join(t.TempDir(), "ledger.db")
	metricsPath := filepath.Join(t.TempDir(), "trainer.prom")

	code, _, stderr := execute(t, "",
		"-p", "colours", "-d", f.dataDir, "-m", f.modelDir,
		"--config_dir", f.configDir, "--ledger", ledgerPath, "--metrics_file", metricsPath,
		"--epochs", "3")
	if code != trainer.ExitOK {
		t.Fatalf("train exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(f.modelDir, model.FileName)); err != nil {
		t.Fatalf("model file: %v", err)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metrics), "autodpp_stage_duration_seconds") {
		t.Errorf("metrics textfile lacks stage durations:\n%s", metrics)
	}

	ledger, err := observer.OpenLedger(ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	runs, err := ledger.Runs(context.Background())
	if err != nil || len(runs) != 1 {
		t.Fatalf("ledger runs: %v (err=%v)", runs, err)
	}

	// Two rows: one labelled, one without the target column.
	code, stdout, stderr := execute(t, "yes,4,blue\n", "apply", "-m", f.modelDir)
	if code != trainer.ExitOK {
		t.Fatalf("apply exit %d: %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	// label + scaled size + three colours.
	if len(lines) != 1 || len(strings.Split(lines[0], ",")) != 5 {
		t.Errorf("apply output: %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "1,") {
		t.Errorf("encoded label: %q", lines[0])
	}

	input := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(input, []byte("size,colour\n7,red\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = execute(t, "", "apply", "-m", f.modelDir, "--input", input)
	if code != trainer.ExitOK || len(strings.Split(strings.TrimSpace(stdout), ",")) != 4 {
		t.Errorf("apply from file: exit %d output %q", code, stdout)
	}
}

func TestTrain_EnvironmentDefaults(t *testing.T) {
	f := newFixture(t)
	t.Setenv("SM_CHANNEL_TRAIN", f.dataDir)
	t.Setenv("SM_MODEL_DIR", f.modelDir)

	code, _, stderr := execute(t, "", "--processor_module", "colours", "--config_dir", f.configDir)
	if code != trainer.ExitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(f.modelDir, trainer.CodeDir, "colours.yaml")); err != nil {
		t.Errorf("exported definition: %v", err)
	}
}

func TestTrain_UnknownProcessor(t *testing.T) {
	f := newFixture(t)
	code, _, stderr := execute(t, "", "-p", "missing", "-d", f.dataDir, "-m", f.modelDir)
	if code != trainer.ExitConfigurationNotFound {
		t.Fatalf("exit: got %d, want %d (%s)", code, trainer.ExitConfigurationNotFound, stderr)
	}
	if !strings.Contains(stderr, "configuration not found") {
		t.Errorf("stderr: %s", stderr)
	}
	if _, err := os.Stat(filepath.Join(f.modelDir, model.FileName)); !os.IsNotExist(err) {
		t.Errorf("model file should not exist: %v", err)
	}
}

func TestTrain_DataLoadFailure(t *testing.T) {
	f := newFixture(t)
	empty := t.TempDir()
	code, _, _ := execute(t, "", "-p", "colours", "-d", empty, "-m", f.modelDir, "--config_dir", f.configDir)
	if code != trainer.ExitDataLoad {
		t.Errorf("exit: got %d, want %d", code, trainer.ExitDataLoad)
	}
}

func TestTrain_RequiresProcessor(t *testing.T) {
	code, _, stderr := execute(t, "")
	if code != trainer.ExitFailure || !strings.Contains(stderr, "processor_module") {
		t.Errorf("exit %d: %s", code, stderr)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	code, stdout, _ := execute(t, "", "list", "--config_dir", f.configDir)
	if code != trainer.ExitOK {
		t.Fatalf("exit %d", code)
	}
	if got, want := stdout, "colours\ndpp2\ndpp9\n"; got != want {
		t.Errorf("list: got %q, want %q", got, want)
	}
}
