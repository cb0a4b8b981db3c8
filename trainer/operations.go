package trainer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dcshock/autodpp/config"
	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/model"
	"github.com/dcshock/autodpp/processors"
	"github.com/dcshock/autodpp/serve"
	"github.com/dcshock/autodpp/transform"
)

// CodeDir is the subdirectory of the model directory the sources are exported to.
const CodeDir = "code"

// CustomizeFunc may replace the feature transform before it is fitted.
type CustomizeFunc func(h *dataset.Header, t transform.Transformer) (transform.Transformer, error)

// IdentityCustomize returns the feature transform unchanged.
func IdentityCustomize(_ *dataset.Header, t transform.Transformer) (transform.Transformer, error) {
	return t, nil
}

// Resolve looks up the named definition and binds it to steps. A definition
// without a label transform resolves with a nil Label builder.
func Resolve(reg *processors.Registry, steps *config.Registry, name string) (*processors.Resolved, error) {
	res, err := reg.Resolve(name, steps)
	if err != nil {
		if errors.Is(err, processors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrConfigurationNotFound, err)
		}
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	return res, nil
}

// LoadDataset reads the training data in dir, split by h.
func LoadDataset(dir string, h *dataset.Header) (*dataset.Dataset, error) {
	ds, err := dataset.Load(dir, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
	}
	return ds, nil
}

// Fit builds fresh transforms from res, applies customize (identity when nil)
// and fits label then features on ds. It performs no I/O.
func Fit(ds *dataset.Dataset, res *processors.Resolved, customize CustomizeFunc) (*model.Model, error) {
	m, err := fit(ds, res, customize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFit, err)
	}
	return m, nil
}

func fit(ds *dataset.Dataset, res *processors.Resolved, customize CustomizeFunc) (*model.Model, error) {
	if customize == nil {
		customize = IdentityCustomize
	}
	feature, err := res.Feature()
	if err != nil {
		return nil, fmt.Errorf("build feature transform: %w", err)
	}
	feature, err = customize(res.Header, feature)
	if err != nil {
		return nil, fmt.Errorf("customize feature transform: %w", err)
	}
	var label transform.LabelTransformer
	if res.Label != nil {
		label, err = res.Label()
		if err != nil {
			return nil, fmt.Errorf("build label transform: %w", err)
		}
	}
	return model.Fit(res.Definition.Name, res.Header, feature, label, ds.Features, ds.Target)
}

// Persist writes m to dir/model.gob, creating dir if absent. The file is
// written to a temporary name and renamed into place, so a partial model
// file is never visible.
func Persist(m *model.Model, dir string) (string, error) {
	path, err := persist(m, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return path, nil
}

func persist(m *model.Model, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+model.FileName+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := model.Save(tmp, m); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close model: %w", err)
	}
	path := filepath.Join(dir, model.FileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename model: %w", err)
	}
	return path, nil
}

// ExportSource writes the definition's source and the inference entry point
// into dir/code. It returns the written paths.
func ExportSource(def *processors.Definition, dir string) ([]string, error) {
	paths, err := exportSource(def, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	return paths, nil
}

func exportSource(def *processors.Definition, dir string) ([]string, error) {
	if def == nil || len(def.Source) == 0 {
		return nil, errors.New("definition source is empty")
	}
	entry := serve.Source()
	if len(entry) == 0 {
		return nil, errors.New("inference entry point source is empty")
	}
	codeDir := filepath.Join(dir, CodeDir)
	if err := os.MkdirAll(codeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create code dir: %w", err)
	}
	name := def.SourceName
	if name == "" {
		name = def.Name + ".yaml"
	}
	files := []struct {
		name string
		data []byte
	}{
		{filepath.Base(name), def.Source},
		{serve.EntrypointFile, entry},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(codeDir, f.name)
		if err := os.WriteFile(p, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
