// Package classify maps free-text requests to workflow phases using
// trigger-phrase scoring.
package classify

import (
	"strings"

	"github.com/herald-ai/herald/pkg/models"
)

// Classifier scores a request against the trigger-phrase table for each
// known phase. The phase with the highest hit count wins; ties are broken
// by the fixed phase priority order (emergency and audit above the general
// phases). Classification never fails: text that matches nothing falls back
// to the implementation phase with zero confidence.
type Classifier struct {
	phrases map[models.Phase][]string
}

// New creates a Classifier with the default trigger-phrase tables.
func New() *Classifier {
	return &Classifier{phrases: triggerPhrases}
}

// NewWithPhrases creates a Classifier with custom phrase tables.
// Used in tests and by deployments that tune the routing vocabulary.
func NewWithPhrases(phrases map[models.Phase][]string) *Classifier {
	return &Classifier{phrases: phrases}
}

// Classify returns the phase for the given request text. It always returns
// exactly one phase and never an error.
func (c *Classifier) Classify(text string) models.Classification {
	lower := strings.ToLower(text)

	best := models.Classification{Phase: models.PhaseImplementation}
	for _, phase := range models.AllPhases() {
		phrases := c.phrases[phase]
		matches := 0
		for _, phrase := range phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		// Higher match count wins. On equal counts the earlier phase in
		// priority order wins; AllPhases iterates in that order, so a
		// strict > keeps the first winner.
		if matches > best.Matches {
			best.Phase = phase
			best.Matches = matches
			best.Confidence = confidence(matches, len(phrases))
		}
	}

	return best
}

// confidence normalizes a hit count against the size of the phrase table.
func confidence(matches, total int) float64 {
	if total == 0 {
		return 0
	}
	conf := float64(matches) / float64(total)
	if conf > 1 {
		conf = 1
	}
	return conf
}
