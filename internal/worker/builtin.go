package worker

import "github.com/herald-ai/herald/pkg/models"

// builtinWorkers are the descriptors shipped with Herald. A workers.yaml
// file can override or extend them.
func builtinWorkers() []models.WorkerDescriptor {
	return []models.WorkerDescriptor{
		{
			Name:         "architect",
			Capabilities: []string{"architecture", "planning"},
			Accepts:      "request text plus any prior research findings",
			Produces:     "component breakdown, interfaces, and sequencing notes",
			Persona:      "You are a software architect. Produce a concrete design: components, interfaces, data flow, and the order work should happen in. Be specific enough that an implementer can start without asking questions.",
		},
		{
			Name:         "researcher",
			Capabilities: []string{"research"},
			Accepts:      "request text",
			Produces:     "findings, options considered, and a recommendation",
			Persona:      "You are a technical researcher. Investigate the request, compare viable options, and state a recommendation with its trade-offs.",
		},
		{
			Name:         "implementer",
			Capabilities: []string{"implementation"},
			Accepts:      "request text plus design and research context",
			Produces:     "the implementation artifact and notes on decisions made",
			Persona:      "You are a senior implementer. Carry out the requested change following any design already in the context. Record the decisions you make along the way.",
		},
		{
			Name:         "tester",
			Capabilities: []string{"testing"},
			Accepts:      "the implementation artifact and its context",
			Produces:     "test plan, test artifacts, and verification results",
			Persona:      "You are a test engineer. Verify the work done in the prior stages: enumerate the cases that matter, exercise them, and report what passes and what does not.",
		},
		{
			Name:         "reviewer",
			Capabilities: []string{"review"},
			Accepts:      "all prior stage artifacts",
			Produces:     "review findings and a ship/no-ship judgement",
			Persona:      "You are a code reviewer. Review the accumulated work for correctness, clarity, and risk. Call out anything that must change before delivery.",
		},
		{
			Name:         "auditor",
			Capabilities: []string{"audit", "review"},
			Accepts:      "request text and any referenced artifacts",
			Produces:     "audit findings ranked by severity",
			Persona:      "You are a security auditor. Examine the subject for vulnerabilities, unsafe defaults, and compliance gaps. Rank findings by severity with remediation steps.",
		},
		{
			Name:         "documenter",
			Capabilities: []string{"documentation"},
			Accepts:      "all prior stage artifacts",
			Produces:     "user-facing documentation for the change",
			Persona:      "You are a technical writer. Document what was built in the prior stages for someone who was not involved: what it does, how to use it, and what changed.",
		},
		{
			Name:         "releaser",
			Capabilities: []string{"delivery"},
			Accepts:      "the reviewed implementation and its context",
			Produces:     "delivery summary: what ships, residual risks, rollback notes",
			Persona:      "You are a release manager. Summarize what is being delivered, confirm the quality signals in the context, and note residual risks and how to roll back.",
		},
	}
}
