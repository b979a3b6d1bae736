// Package catalog holds the workflow template registry and resolves a
// classification (or an explicit override) to a template.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/herald-ai/herald/pkg/models"
)

// ErrUnknownWorkflow is returned when a resolved template name is not in
// the catalog. This is a configuration-integrity failure: it is surfaced to
// the caller and never silently defaulted.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// Catalog is the read-only registry of workflow templates plus the static
// phase-to-template routing table. It is built once at process start and
// safe for concurrent use afterwards.
type Catalog struct {
	templates map[string]models.WorkflowTemplate
	phases    map[models.Phase]string
}

// New builds a Catalog from templates and a phase routing table.
// Every template must pass structural validation and every phase table
// entry must point at a known template.
func New(templates []models.WorkflowTemplate, phases map[models.Phase]string) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]models.WorkflowTemplate, len(templates)),
		phases:    make(map[models.Phase]string, len(phases)),
	}

	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.templates[t.Name]; dup {
			return nil, fmt.Errorf("duplicate workflow template %q", t.Name)
		}
		c.templates[t.Name] = t
	}

	for phase, name := range phases {
		if !phase.Valid() {
			return nil, fmt.Errorf("phase table references unknown phase %q", phase)
		}
		if _, ok := c.templates[name]; !ok {
			return nil, fmt.Errorf("phase %q routes to %q: %w", phase, name, ErrUnknownWorkflow)
		}
		c.phases[phase] = name
	}

	for _, phase := range models.AllPhases() {
		if _, ok := c.phases[phase]; !ok {
			return nil, fmt.Errorf("phase table has no entry for phase %q", phase)
		}
	}

	return c, nil
}

// Resolve returns the template for a classification. An explicit override
// naming a known template is used verbatim; user intent trumps
// classification. Otherwise the phase routes through the static table.
func (c *Catalog) Resolve(cls models.Classification, override string) (models.WorkflowTemplate, error) {
	if override != "" {
		t, ok := c.templates[override]
		if !ok {
			return models.WorkflowTemplate{}, fmt.Errorf("override %q: %w", override, ErrUnknownWorkflow)
		}
		return t, nil
	}

	name, ok := c.phases[cls.Phase]
	if !ok {
		return models.WorkflowTemplate{}, fmt.Errorf("phase %q: %w", cls.Phase, ErrUnknownWorkflow)
	}
	t, ok := c.templates[name]
	if !ok {
		return models.WorkflowTemplate{}, fmt.Errorf("template %q: %w", name, ErrUnknownWorkflow)
	}
	return t, nil
}

// Get returns a template by name.
func (c *Catalog) Get(name string) (models.WorkflowTemplate, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Names returns all template names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PhaseTable returns a copy of the phase routing table.
func (c *Catalog) PhaseTable() map[models.Phase]string {
	out := make(map[models.Phase]string, len(c.phases))
	for p, n := range c.phases {
		out[p] = n
	}
	return out
}

// ValidateWorkers checks the catalog integrity invariant: no template may
// reference a worker absent from the registry. The predicate reports
// whether a worker name is registered. Checked once at load time.
func (c *Catalog) ValidateWorkers(exists func(name string) bool) error {
	for _, name := range c.Names() {
		t := c.templates[name]
		for _, w := range t.WorkerNames() {
			if !exists(w) {
				return fmt.Errorf("workflow %q references unregistered worker %q", t.Name, w)
			}
		}
	}
	return nil
}
