package processors

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dcshock/autodpp/config"
	"github.com/dcshock/autodpp/transform"
)

func TestDefault_BuiltinDefinitions(t *testing.T) {
	reg := Default()
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"dpp2", "dpp9"}) {
		t.Fatalf("names: got %v", got)
	}
	for _, name := range reg.Names() {
		res, err := reg.Resolve(name, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Header.Target != "y" || res.Header.NumColumns() != 21 {
			t.Errorf("%s header: %+v", name, res.Header)
		}
		if res.Definition.SourceName != name+".yaml" || len(res.Definition.Source) == 0 {
			t.Errorf("%s source: %q (%d bytes)", name, res.Definition.SourceName, len(res.Definition.Source))
		}
		if _, err := res.Feature(); err != nil {
			t.Errorf("%s feature build: %v", name, err)
		}
		if res.Label == nil {
			t.Fatalf("%s: label builder missing", name)
		}
		lt, err := res.Label()
		if err != nil {
			t.Fatal(err)
		}
		if err := lt.Fit([]string{"no", "yes"}); err != nil {
			t.Fatal(err)
		}
		if enc := lt.(*transform.RobustLabelEncoder); !reflect.DeepEqual(enc.Classes, []string{"no", "yes"}) {
			t.Errorf("%s classes: %v", name, enc.Classes)
		}
	}
}

func TestResolve_FreshTransformsPerCall(t *testing.T) {
	res, err := Default().Resolve("dpp9", config.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := res.Feature()
	b, _ := res.Feature()
	if a == b {
		t.Error("feature builder returned the same instance twice")
	}
}

func TestResolve_Unknown(t *testing.T) {
	if _, err := Default().Resolve("dpp404", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDir_NoLabelAndOverride(t *testing.T) {
	dir := t.TempDir()
	def := `
name: plain
header: {columns: [a, b]}
feature_transform: {steps: [robust_standard_scaler]}
`
	if err := os.WriteFile(filepath.Join(dir, "plain.yml"), []byte(def), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := Default()
	names, err := reg.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"plain"}) {
		t.Errorf("loaded: got %v", names)
	}
	res, err := reg.Resolve("plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != nil {
		t.Error("definition without label_transform should resolve to a nil label builder")
	}
	if res.Header.TargetIndex() != -1 {
		t.Errorf("target index: got %d", res.Header.TargetIndex())
	}
}

func TestLoadDir_InvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRegistry().LoadDir(dir); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
