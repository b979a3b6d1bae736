// Package worker provides the worker registry and the dispatch boundary to
// the opaque worker backends.
package worker

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/herald-ai/herald/pkg/models"
)

// Registry is the static catalog of available workers. It is built once at
// process start and read-only afterwards, so any number of runs may consult
// it concurrently without locking.
type Registry struct {
	workers map[string]models.WorkerDescriptor
}

// NewRegistry builds a registry from descriptors.
func NewRegistry(descriptors []models.WorkerDescriptor) (*Registry, error) {
	r := &Registry{workers: make(map[string]models.WorkerDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.workers[d.Name]; dup {
			return nil, fmt.Errorf("duplicate worker %q", d.Name)
		}
		r.workers[d.Name] = d
	}
	return r, nil
}

// registryFile is the on-disk schema of a workers.yaml file.
type registryFile struct {
	Workers []models.WorkerDescriptor `yaml:"workers"`
}

// LoadRegistry builds a registry from a workers.yaml file layered over the
// built-ins. File descriptors replace built-ins with the same name. An
// empty path returns the built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	descriptors := builtinWorkers()

	if path == "" {
		return NewRegistry(descriptors)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worker registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse worker registry %s: %w", path, err)
	}

	byName := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		byName[d.Name] = i
	}
	for _, d := range file.Workers {
		if i, ok := byName[d.Name]; ok {
			descriptors[i] = d
		} else {
			byName[d.Name] = len(descriptors)
			descriptors = append(descriptors, d)
		}
	}

	r, err := NewRegistry(descriptors)
	if err != nil {
		return nil, fmt.Errorf("worker registry %s: %w", path, err)
	}
	return r, nil
}

// Get returns the descriptor for a worker name.
func (r *Registry) Get(name string) (models.WorkerDescriptor, bool) {
	d, ok := r.workers[name]
	return d, ok
}

// Has reports whether a worker name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.workers[name]
	return ok
}

// Names returns all registered worker names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithCapability returns the names of workers carrying the given tag,
// in sorted order.
func (r *Registry) WithCapability(tag string) []string {
	var names []string
	for name, d := range r.workers {
		if d.HasCapability(tag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
