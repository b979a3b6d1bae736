package models

import (
	"fmt"
	"sort"
)

// StageType distinguishes the two stage variants of a workflow template.
type StageType string

const (
	// StageSingle dispatches exactly one worker.
	StageSingle StageType = "single"
	// StageParallel dispatches every member worker concurrently and waits
	// for the full set before the workflow advances.
	StageParallel StageType = "parallel"
)

// Stage is one unit of a workflow template: a single worker reference or a
// parallel group of worker references.
type Stage struct {
	// Type is the stage variant.
	Type StageType `json:"type" yaml:"type"`
	// Workers lists the member worker names. A single stage has exactly
	// one entry.
	Workers []string `json:"workers" yaml:"workers"`
	// BestEffort marks the stage as skippable on failure: a worker that
	// exhausts its retry leaves a gap in the context instead of failing
	// the run.
	BestEffort bool `json:"best_effort,omitempty" yaml:"best_effort,omitempty"`
}

// Single returns a single-worker stage.
func Single(worker string) Stage {
	return Stage{Type: StageSingle, Workers: []string{worker}}
}

// Parallel returns a parallel stage over the given workers.
func Parallel(workers ...string) Stage {
	return Stage{Type: StageParallel, Workers: workers}
}

// Validate checks the structural invariants of a stage.
func (s Stage) Validate() error {
	switch s.Type {
	case StageSingle:
		if len(s.Workers) != 1 {
			return fmt.Errorf("single stage must reference exactly one worker, got %d", len(s.Workers))
		}
	case StageParallel:
		if len(s.Workers) == 0 {
			return fmt.Errorf("parallel stage must reference at least one worker")
		}
		seen := make(map[string]bool, len(s.Workers))
		for _, w := range s.Workers {
			if seen[w] {
				return fmt.Errorf("parallel stage references worker %q twice", w)
			}
			seen[w] = true
		}
	default:
		return fmt.Errorf("unknown stage type %q", s.Type)
	}
	for _, w := range s.Workers {
		if w == "" {
			return fmt.Errorf("stage references an empty worker name")
		}
	}
	return nil
}

// SortedWorkers returns the member workers in lexicographic order.
// Parallel stage results are merged into the run context in this order so
// that identical inputs produce identical context layouts regardless of
// real-world completion timing.
func (s Stage) SortedWorkers() []string {
	out := make([]string, len(s.Workers))
	copy(out, s.Workers)
	sort.Strings(out)
	return out
}

// WorkflowTemplate is a named, ordered sequence of stages. Templates are
// static configuration: loaded once at process start and never mutated.
type WorkflowTemplate struct {
	// Name is the unique template name.
	Name string `json:"name" yaml:"name"`
	// Description is a short human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Stages is the ordered stage list. Never empty.
	Stages []Stage `json:"stages" yaml:"stages"`
}

// Validate checks the structural invariants of a template. Worker existence
// is checked separately by the catalog against the worker registry.
func (t WorkflowTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("workflow template has no name")
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("workflow %q has no stages", t.Name)
	}
	for i, stage := range t.Stages {
		if err := stage.Validate(); err != nil {
			return fmt.Errorf("workflow %q stage %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// WorkerNames returns the deduplicated set of worker names referenced by
// the template, in first-reference order.
func (t WorkflowTemplate) WorkerNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, stage := range t.Stages {
		for _, w := range stage.Workers {
			if !seen[w] {
				seen[w] = true
				names = append(names, w)
			}
		}
	}
	return names
}
