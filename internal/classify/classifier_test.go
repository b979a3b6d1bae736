package classify

import (
	"testing"

	"github.com/herald-ai/herald/pkg/models"
)

func TestClassifyPhases(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want models.Phase
	}{
		{"emergency", "production is down, we have an outage", models.PhaseEmergency},
		{"audit", "run a security review for the payments service", models.PhaseAudit},
		{"planning", "draft a system design and roadmap for multi-region", models.PhasePlanning},
		{"research", "investigate feasibility of switching to arrow, build a proof of concept", models.PhaseResearch},
		{"testing", "add tests to improve test coverage on the parser", models.PhaseTesting},
		{"refactor", "refactor the session layer and clean up the tech debt", models.PhaseRefactor},
		{"documentation", "update the readme and api reference docs", models.PhaseDocumentation},
		{"quickcycle", "just change the typo in the banner, trivial", models.PhaseQuickCycle},
		{"implementation", "implement the new export endpoint", models.PhaseImplementation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Phase != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got.Phase, tt.want)
			}
			if got.Matches == 0 {
				t.Errorf("Classify(%q) matched no phrases", tt.text)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("confidence %f out of range (0, 1]", got.Confidence)
			}
		})
	}
}

func TestClassifyFallback(t *testing.T) {
	c := New()

	got := c.Classify("zxqv flumph")
	if got.Phase != models.PhaseImplementation {
		t.Errorf("fallback phase = %s, want %s", got.Phase, models.PhaseImplementation)
	}
	if got.Confidence != 0 {
		t.Errorf("fallback confidence = %f, want 0", got.Confidence)
	}
	if got.Matches != 0 {
		t.Errorf("fallback matches = %d, want 0", got.Matches)
	}
}

func TestClassifyTieBreaksByPriority(t *testing.T) {
	// Both phases score exactly one hit; the higher-priority phase must win.
	phrases := map[models.Phase][]string{
		models.PhaseEmergency: {"alpha"},
		models.PhaseRefactor:  {"omega"},
	}
	c := NewWithPhrases(phrases)

	got := c.Classify("alpha omega")
	if got.Phase != models.PhaseEmergency {
		t.Errorf("tie broke to %s, want %s", got.Phase, models.PhaseEmergency)
	}
}

func TestClassifyHigherScoreBeatsPriority(t *testing.T) {
	phrases := map[models.Phase][]string{
		models.PhaseEmergency: {"alpha"},
		models.PhaseRefactor:  {"omega", "sigma"},
	}
	c := NewWithPhrases(phrases)

	got := c.Classify("alpha omega sigma")
	if got.Phase != models.PhaseRefactor {
		t.Errorf("got %s, want %s (two hits beat one)", got.Phase, models.PhaseRefactor)
	}
	if got.Matches != 2 {
		t.Errorf("matches = %d, want 2", got.Matches)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New()

	got := c.Classify("URGENT: PRODUCTION IS DOWN")
	if got.Phase != models.PhaseEmergency {
		t.Errorf("got %s, want %s", got.Phase, models.PhaseEmergency)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New()
	text := "refactor and document the quick build"

	first := c.Classify(text)
	for i := 0; i < 50; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
