package catalog

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/herald-ai/herald/pkg/models"
)

// catalogFile is the on-disk schema of a workflows.yaml file.
type catalogFile struct {
	// Workflows lists templates that override or extend the built-ins.
	Workflows []models.WorkflowTemplate `yaml:"workflows"`
	// Phases overrides phase routing entries. Unlisted phases keep their
	// built-in route.
	Phases map[string]string `yaml:"phases"`
}

// Load builds a catalog from a workflows.yaml file layered over the
// built-ins. File templates replace built-ins with the same name; file
// phase entries replace built-in routes. An empty path returns the
// built-in catalog.
func Load(path string) (*Catalog, error) {
	templates := builtinTemplates()
	phases := builtinPhaseTable()

	if path == "" {
		return New(templates, phases)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse workflow catalog %s: %w", path, err)
	}

	byName := make(map[string]int, len(templates))
	for i, t := range templates {
		byName[t.Name] = i
	}
	for _, t := range file.Workflows {
		if i, ok := byName[t.Name]; ok {
			templates[i] = t
		} else {
			byName[t.Name] = len(templates)
			templates = append(templates, t)
		}
	}

	for phase, name := range file.Phases {
		phases[models.Phase(phase)] = name
	}

	c, err := New(templates, phases)
	if err != nil {
		return nil, fmt.Errorf("workflow catalog %s: %w", path, err)
	}
	return c, nil
}
