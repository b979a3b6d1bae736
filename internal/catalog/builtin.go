package catalog

import "github.com/herald-ai/herald/pkg/models"

// builtinTemplates are the workflow templates shipped with Herald. A
// workflows.yaml file can override or extend them; new patterns are added
// by configuration, not by touching the orchestrator.
func builtinTemplates() []models.WorkflowTemplate {
	return []models.WorkflowTemplate{
		{
			Name:        "QuickCycle",
			Description: "Small well-scoped change: implement, then test.",
			Stages: []models.Stage{
				models.Single("implementer"),
				models.Single("tester"),
			},
		},
		{
			Name:        "FullLifecycle",
			Description: "Feature work: design, implement, parallel quality pass, deliver.",
			Stages: []models.Stage{
				models.Single("architect"),
				models.Single("implementer"),
				{
					Type:       models.StageParallel,
					Workers:    []string{"tester", "reviewer", "documenter"},
					BestEffort: true,
				},
				models.Single("releaser"),
			},
		},
		{
			Name:        "Emergency",
			Description: "Incident response: fix fast, review, ship.",
			Stages: []models.Stage{
				models.Single("implementer"),
				models.Single("reviewer"),
				models.Single("releaser"),
			},
		},
		{
			Name:        "Audit",
			Description: "Security and quality audit with a written report.",
			Stages: []models.Stage{
				models.Parallel("auditor", "reviewer"),
				models.Single("documenter"),
			},
		},
		{
			Name:        "Blueprint",
			Description: "Design-only work: architecture proposal plus review.",
			Stages: []models.Stage{
				models.Single("architect"),
				models.Single("reviewer"),
			},
		},
		{
			Name:        "Research",
			Description: "Investigation: parallel exploration, optional writeup.",
			Stages: []models.Stage{
				models.Parallel("researcher", "architect"),
				{
					Type:       models.StageSingle,
					Workers:    []string{"documenter"},
					BestEffort: true,
				},
			},
		},
		{
			Name:        "Hardening",
			Description: "Test authoring and coverage work.",
			Stages: []models.Stage{
				models.Single("tester"),
				models.Single("reviewer"),
			},
		},
		{
			Name:        "Refactor",
			Description: "Behavior-preserving restructuring with a quality pass.",
			Stages: []models.Stage{
				models.Single("implementer"),
				models.Parallel("tester", "reviewer"),
			},
		},
		{
			Name:        "Docs",
			Description: "Documentation-only change.",
			Stages: []models.Stage{
				models.Single("documenter"),
				{
					Type:       models.StageSingle,
					Workers:    []string{"reviewer"},
					BestEffort: true,
				},
			},
		},
	}
}

// builtinPhaseTable routes each phase to its default template.
func builtinPhaseTable() map[models.Phase]string {
	return map[models.Phase]string{
		models.PhaseEmergency:      "Emergency",
		models.PhaseAudit:          "Audit",
		models.PhasePlanning:       "Blueprint",
		models.PhaseResearch:       "Research",
		models.PhaseTesting:        "Hardening",
		models.PhaseRefactor:       "Refactor",
		models.PhaseDocumentation:  "Docs",
		models.PhaseQuickCycle:     "QuickCycle",
		models.PhaseImplementation: "FullLifecycle",
	}
}

// Builtin returns a catalog of only the built-in templates.
// The built-ins always pass validation; a failure here is a programming
// error, so Builtin panics instead of returning one.
func Builtin() *Catalog {
	c, err := New(builtinTemplates(), builtinPhaseTable())
	if err != nil {
		panic("catalog: invalid builtin templates: " + err.Error())
	}
	return c
}
