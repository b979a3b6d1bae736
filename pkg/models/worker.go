package models

import "fmt"

// WorkerDescriptor describes one specialized collaborator in the registry.
// Descriptors are static: loaded at process start and read-only afterwards.
type WorkerDescriptor struct {
	// Name is the unique worker name referenced by workflow stages.
	Name string `json:"name" yaml:"name"`
	// Capabilities are the capability tags (architecture, implementation,
	// testing, review, delivery, ...).
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	// Accepts describes the input contract the worker expects.
	Accepts string `json:"accepts,omitempty" yaml:"accepts,omitempty"`
	// Produces describes the output contract the worker emits.
	Produces string `json:"produces,omitempty" yaml:"produces,omitempty"`
	// Persona is the instruction preamble given to the worker backend.
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty"`
}

// Validate checks the structural invariants of a descriptor.
func (d WorkerDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("worker descriptor has no name")
	}
	if len(d.Capabilities) == 0 {
		return fmt.Errorf("worker %q has no capability tags", d.Name)
	}
	return nil
}

// HasCapability reports whether the worker carries the given tag.
func (d WorkerDescriptor) HasCapability(tag string) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
