package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/herald-ai/herald/pkg/models"
)

// ErrContextCollision is returned on an attempt to overwrite an existing
// context key. The store is append-only; a collision can only come from an
// orchestrator defect, never from user input.
var ErrContextCollision = errors.New("context key collision")

// Context is the append-only, step-indexed record of stage outputs for one
// run. Keys are (stage index, worker name); once written, a key is never
// overwritten. The Context is owned exclusively by the run that created it
// and is only ever mutated from the run's single control loop, so it needs
// no internal locking.
type Context struct {
	entries []models.ContextEntry
	index   map[string]int
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{index: make(map[string]int)}
}

// Merge appends one entry. The entry's key must not already exist.
func (c *Context) Merge(entry models.ContextEntry) error {
	key := entry.Key()
	if _, exists := c.index[key]; exists {
		return fmt.Errorf("%w: %s", ErrContextCollision, key)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, entry)
	return nil
}

// View returns all entries in write order. The returned slice is a copy:
// it is handed to worker dispatches running outside the control loop, and
// later merges must not be visible through it.
func (c *Context) View() []models.ContextEntry {
	view := make([]models.ContextEntry, len(c.entries))
	copy(view, c.entries)
	return view
}

// Get returns the entry for a stage index and worker, if present.
func (c *Context) Get(stageIndex int, worker string) (models.ContextEntry, bool) {
	i, ok := c.index[models.ContextKey(stageIndex, worker)]
	if !ok {
		return models.ContextEntry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries.
func (c *Context) Len() int {
	return len(c.entries)
}
