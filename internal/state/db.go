// Package state provides SQLite-based persistence for Herald runs.
// It archives run records and context entries so status and result queries
// can be answered after a run's control loop has exited.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/herald-ai/herald/pkg/models"
)

// DB wraps an SQLite database connection with Herald-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the global Herald database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "herald", "herald.db")
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".herald", "state.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	request_text TEXT NOT NULL,
	workflow TEXT NOT NULL,
	phase TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	current_stage INTEGER NOT NULL DEFAULT 0,
	failed_worker TEXT,
	error TEXT,
	started_at DATETIME NOT NULL,
	completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

const migrationV2ContextEntries = `
CREATE TABLE IF NOT EXISTS context_entries (
	run_id TEXT NOT NULL REFERENCES runs(id),
	stage_index INTEGER NOT NULL,
	worker TEXT NOT NULL,
	artifact TEXT,
	metadata TEXT,
	gap INTEGER NOT NULL DEFAULT 0,
	gap_reason TEXT,
	recorded_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, stage_index, worker)
);
`

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2ContextEntries},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveRun inserts or updates a run record.
func (db *DB) SaveRun(r *models.Run) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var completedAt *time.Time
	if r.CompletedAt != nil {
		completedAt = r.CompletedAt
	}

	_, err := db.conn.Exec(`
		INSERT INTO runs (id, request_text, workflow, phase, confidence, status, current_stage, failed_worker, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			current_stage = excluded.current_stage,
			failed_worker = excluded.failed_worker,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.ID, r.RequestText, r.Workflow, string(r.Phase), r.Confidence, string(r.Status),
		r.CurrentStage, r.FailedWorker, r.Error, r.StartedAt, completedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun returns the run record with the given ID.
func (db *DB) GetRun(id string) (*models.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id, request_text, workflow, phase, confidence, status, current_stage, failed_worker, error, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)

	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, request_text, workflow, phase, confidence, status, current_stage, failed_worker, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ErrRunNotFound is returned when a run ID has no archived record.
var ErrRunNotFound = fmt.Errorf("run not found")

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var r models.Run
	var phase, failedWorker, errMsg sql.NullString
	var completedAt sql.NullTime

	err := s.Scan(&r.ID, &r.RequestText, &r.Workflow, &phase, &r.Confidence,
		(*string)(&r.Status), &r.CurrentStage, &failedWorker, &errMsg, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.Phase = models.Phase(phase.String)
	r.FailedWorker = failedWorker.String
	r.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

// AppendContext archives one context entry for a run.
func (db *DB) AppendContext(runID string, e models.ContextEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal context metadata: %w", err)
		}
	}

	gap := 0
	if e.Gap {
		gap = 1
	}

	_, err := db.conn.Exec(`
		INSERT INTO context_entries (run_id, stage_index, worker, artifact, metadata, gap, gap_reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, e.StageIndex, e.Worker, e.Artifact, string(metadata), gap, e.GapReason, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("append context for run %s: %w", runID, err)
	}
	return nil
}

// GetContext returns a run's archived context entries in write order.
func (db *DB) GetContext(runID string) ([]models.ContextEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT stage_index, worker, artifact, metadata, gap, gap_reason, recorded_at
		FROM context_entries WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get context for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []models.ContextEntry
	for rows.Next() {
		var e models.ContextEntry
		var artifact, metadata, gapReason sql.NullString
		var gap int

		if err := rows.Scan(&e.StageIndex, &e.Worker, &artifact, &metadata, &gap, &gapReason, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan context entry: %w", err)
		}

		e.Artifact = artifact.String
		e.Gap = gap != 0
		e.GapReason = gapReason.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal context metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
