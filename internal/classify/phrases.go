package classify

import "github.com/herald-ai/herald/pkg/models"

// triggerPhrases maps each phase to the phrases that signal it. Matching is
// case-insensitive substring containment; a phase's score is its hit count.
var triggerPhrases = map[models.Phase][]string{
	models.PhaseEmergency: {
		"production is down",
		"prod is down",
		"outage",
		"incident",
		"hotfix",
		"urgent",
		"emergency",
		"sev1",
		"on fire",
		"data loss",
	},
	models.PhaseAudit: {
		"audit",
		"security review",
		"vulnerability",
		"compliance",
		"pen test",
		"penetration test",
		"cve",
		"threat model",
	},
	models.PhasePlanning: {
		"design",
		"architecture",
		"architect",
		"plan out",
		"roadmap",
		"rfc",
		"proposal",
		"high-level",
		"system design",
		"break down",
	},
	models.PhaseResearch: {
		"research",
		"investigate",
		"explore",
		"spike",
		"compare",
		"evaluate",
		"feasibility",
		"proof of concept",
		"prototype",
	},
	models.PhaseTesting: {
		"write tests",
		"add tests",
		"test coverage",
		"unit test",
		"integration test",
		"regression",
		"flaky",
		"coverage",
	},
	models.PhaseRefactor: {
		"refactor",
		"clean up",
		"cleanup",
		"restructure",
		"extract",
		"simplify",
		"tech debt",
		"technical debt",
		"rename",
		"dedupe",
	},
	models.PhaseDocumentation: {
		"document",
		"documentation",
		"readme",
		"docs",
		"changelog",
		"comment",
		"docstring",
		"api reference",
	},
	models.PhaseQuickCycle: {
		"quick",
		"small change",
		"tiny",
		"one-liner",
		"typo",
		"minor",
		"trivial",
		"just change",
		"bump",
	},
	models.PhaseImplementation: {
		"implement",
		"build",
		"add feature",
		"create",
		"develop",
		"feature",
		"endpoint",
		"integrate",
		"support for",
	},
}
