package processors

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dcshock/autodpp/config"
	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/transform"
)

//go:embed definitions/*.yaml
var builtin embed.FS

// ErrNotFound is returned when no definition is registered under a name.
var ErrNotFound = errors.New("processor not found")

// Definition is a named pipeline definition plus the source text it was parsed from.
type Definition struct {
	Name string
	// SourceName is the file name the source is exported under.
	SourceName string
	Source     []byte
	Config     *config.PipelineConfig
}

// FeatureBuilder constructs a fresh, unfitted feature transform.
type FeatureBuilder func() (transform.Transformer, error)

// LabelBuilder constructs a fresh, unfitted label transform.
type LabelBuilder func() (transform.LabelTransformer, error)

// Resolved is a definition bound to a step registry. Label is nil when the
// definition declares no label transform.
type Resolved struct {
	Definition *Definition
	Header     *dataset.Header
	Feature    FeatureBuilder
	Label      LabelBuilder
}

// Registry maps processor names to definitions. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry returns an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Default returns a registry holding the built-in definitions. It panics if
// an embedded definition does not parse.
func Default() *Registry {
	r := NewRegistry()
	entries, err := fs.ReadDir(builtin, "definitions")
	if err != nil {
		panic(fmt.Sprintf("processors: read embedded definitions: %v", err))
	}
	for _, e := range entries {
		data, err := fs.ReadFile(builtin, "definitions/"+e.Name())
		if err != nil {
			panic(fmt.Sprintf("processors: read %s: %v", e.Name(), err))
		}
		if _, err := r.RegisterSource(e.Name(), data); err != nil {
			panic(fmt.Sprintf("processors: %v", err))
		}
	}
	return r
}

// Register adds def under def.Name. Overwrites any existing registration.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defs == nil {
		r.defs = make(map[string]*Definition)
	}
	r.defs[def.Name] = def
}

// RegisterSource parses a YAML definition and registers it.
func (r *Registry) RegisterSource(sourceName string, data []byte) (*Definition, error) {
	cfg, err := config.ParsePipelineConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sourceName, err)
	}
	def := &Definition{Name: cfg.Name, SourceName: sourceName, Source: data, Config: cfg}
	r.Register(def)
	return def, nil
}

// LoadDir registers every .yaml/.yml file in dir. Definitions loaded later
// override earlier ones with the same name, including built-ins.
func (r *Registry) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		def, err := r.RegisterSource(e.Name(), data)
		if err != nil {
			return nil, err
		}
		names = append(names, def.Name)
	}
	return names, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return def, nil
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up name and binds it to steps. The returned builders
// construct new transforms on every call.
func (r *Registry) Resolve(name string, steps *config.Registry) (*Resolved, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = config.DefaultRegistry()
	}
	h, err := config.BuildHeader(def.Config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	res := &Resolved{
		Definition: def,
		Header:     h,
		Feature: func() (transform.Transformer, error) {
			return config.BuildFeatureTransform(steps, h, def.Config)
		},
	}
	if def.Config.LabelTransform != nil {
		res.Label = func() (transform.LabelTransformer, error) {
			return config.BuildLabelTransform(steps, def.Config)
		}
	}
	return res, nil
}
