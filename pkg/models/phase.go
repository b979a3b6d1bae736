// Package models defines the core data types shared across Herald.
package models

// Phase is the intent label assigned to an incoming request.
// The set is closed: classification never invents a new phase.
type Phase string

const (
	// PhaseEmergency indicates a production incident or urgent hotfix.
	PhaseEmergency Phase = "emergency"
	// PhaseAudit indicates a security or quality audit request.
	PhaseAudit Phase = "audit"
	// PhasePlanning indicates design or architecture work.
	PhasePlanning Phase = "planning"
	// PhaseResearch indicates investigation or spike work.
	PhaseResearch Phase = "research"
	// PhaseTesting indicates test authoring or coverage work.
	PhaseTesting Phase = "testing"
	// PhaseRefactor indicates restructuring without behavior change.
	PhaseRefactor Phase = "refactor"
	// PhaseDocumentation indicates docs-only work.
	PhaseDocumentation Phase = "documentation"
	// PhaseQuickCycle indicates a small, well-scoped change.
	PhaseQuickCycle Phase = "quickcycle"
	// PhaseImplementation is general feature work and the classifier fallback.
	PhaseImplementation Phase = "implementation"
)

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseEmergency, PhaseAudit, PhasePlanning, PhaseResearch,
		PhaseTesting, PhaseRefactor, PhaseDocumentation, PhaseQuickCycle,
		PhaseImplementation:
		return true
	default:
		return false
	}
}

// Priority returns the tie-break rank for the phase. Lower ranks win ties.
// Emergency and audit outrank the general-purpose phases so that an
// ambiguous request errs toward the more specific workflow.
func (p Phase) Priority() int {
	switch p {
	case PhaseEmergency:
		return 0
	case PhaseAudit:
		return 1
	case PhasePlanning:
		return 2
	case PhaseResearch:
		return 3
	case PhaseTesting:
		return 4
	case PhaseRefactor:
		return 5
	case PhaseDocumentation:
		return 6
	case PhaseQuickCycle:
		return 7
	case PhaseImplementation:
		return 8
	default:
		return 9
	}
}

// AllPhases returns every known phase in priority order.
func AllPhases() []Phase {
	return []Phase{
		PhaseEmergency,
		PhaseAudit,
		PhasePlanning,
		PhaseResearch,
		PhaseTesting,
		PhaseRefactor,
		PhaseDocumentation,
		PhaseQuickCycle,
		PhaseImplementation,
	}
}

// Classification is the result of intent classification for a request.
// It is created once by the classifier and never mutated.
type Classification struct {
	// Phase is the winning intent label.
	Phase Phase `json:"phase"`
	// Confidence is the fraction of the winning phase's trigger phrases
	// that matched, in [0,1]. It is a relative match strength, not a
	// probability: a single strong hit against a large phrase table still
	// scores low. Zero means no phrase matched and the fallback phase was
	// used.
	Confidence float64 `json:"confidence"`
	// Matches is the raw trigger-phrase hit count for the winning phase.
	Matches int `json:"matches"`
}
