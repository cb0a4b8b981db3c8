package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dcshock/autodpp/transform"
)

// StepBuilder constructs an unfitted feature transformer from a step entry.
type StepBuilder func(ref StepRef) (transform.Transformer, error)

// LabelBuilder constructs an unfitted label transformer from a step entry.
type LabelBuilder func(ref StepRef) (transform.LabelTransformer, error)

// Registry maps step names to builders. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	steps  map[string]StepBuilder
	labels map[string]LabelBuilder
}

// NewRegistry returns an empty step registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:  make(map[string]StepBuilder),
		labels: make(map[string]LabelBuilder),
	}
}

// Register adds a feature step builder under the given name. Overwrites any existing registration.
func (r *Registry) Register(name string, b StepBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps == nil {
		r.steps = make(map[string]StepBuilder)
	}
	r.steps[name] = b
}

// RegisterLabel adds a label builder under the given name. Overwrites any existing registration.
func (r *Registry) RegisterLabel(name string, b LabelBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.labels == nil {
		r.labels = make(map[string]LabelBuilder)
	}
	r.labels[name] = b
}

// Get returns the feature step builder for name, or nil and false if not found.
func (r *Registry) Get(name string) (StepBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.steps[name]
	return b, ok
}

// GetLabel returns the label builder for name, or nil and false if not found.
func (r *Registry) GetLabel(name string) (LabelBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.labels[name]
	return b, ok
}

// MustGet returns the feature step builder for name, or panics if not found.
func (r *Registry) MustGet(name string) StepBuilder {
	b, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("config: step %q not registered", name))
	}
	return b
}

// Names returns all registered feature step names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
