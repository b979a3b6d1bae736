// Package state provides SQLite-based persistence for Herald runs.
package state

import (
	"io"

	"github.com/herald-ai/herald/pkg/models"
)

// RunStore handles run-record persistence.
type RunStore interface {
	SaveRun(r *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
}

// ContextStore handles archived context entries.
type ContextStore interface {
	AppendContext(runID string, e models.ContextEntry) error
	GetContext(runID string) ([]models.ContextEntry, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for run persistence. The orchestrator works
// against this interface so any backend can stand in for the concrete
// SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	RunStore
	ContextStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ RunStore     = (*DB)(nil)
	_ ContextStore = (*DB)(nil)
)
