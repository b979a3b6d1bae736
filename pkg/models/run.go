package models

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	// RunPending indicates the run has been accepted but not started.
	RunPending RunStatus = "pending"
	// RunRunning indicates the control loop is executing stages.
	RunRunning RunStatus = "running"
	// RunCompleted indicates every stage finished.
	RunCompleted RunStatus = "completed"
	// RunFailed indicates a non-best-effort worker exhausted its retry.
	RunFailed RunStatus = "failed"
	// RunAborted indicates the caller cancelled the run.
	RunAborted RunStatus = "aborted"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunAborted:
		return true
	default:
		return false
	}
}

// Terminal returns true once the run can no longer change state.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunAborted
}

// StageStatus is the outcome of a single worker dispatch.
type StageStatus string

const (
	// StageSuccess indicates the worker produced an artifact.
	StageSuccess StageStatus = "success"
	// StageFailure indicates the worker reported an error.
	StageFailure StageStatus = "failure"
	// StageTimeout indicates the dispatch exceeded its deadline.
	StageTimeout StageStatus = "timeout"
)

// StageResult is what a worker dispatch reports back to the orchestrator.
type StageResult struct {
	// Worker is the name of the worker that produced this result.
	Worker string `json:"worker"`
	// Status is the dispatch outcome.
	Status StageStatus `json:"status"`
	// Artifact is the opaque output payload. The orchestrator never
	// interprets its content.
	Artifact string `json:"artifact,omitempty"`
	// Metadata carries structured output attributes (model, token counts,
	// references), also opaque to the orchestrator.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Err holds the error detail when Status is not success.
	Err string `json:"error,omitempty"`
	// Attempts is how many dispatches were needed (1 or 2).
	Attempts int `json:"attempts"`
	// Duration is the wall time of the final attempt.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the dispatch produced a usable artifact.
func (r StageResult) Succeeded() bool {
	return r.Status == StageSuccess
}

// ContextEntry is one record in a run's append-only context.
type ContextEntry struct {
	// StageIndex is the zero-based stage that produced the entry.
	StageIndex int `json:"stage_index"`
	// Worker is the producing worker name.
	Worker string `json:"worker"`
	// Artifact is the worker's output payload. Empty for gap entries.
	Artifact string `json:"artifact,omitempty"`
	// Metadata carries the result's structured attributes.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Gap marks a best-effort stage member that failed after retry.
	// The entry records the hole so later stages can see it.
	Gap bool `json:"gap,omitempty"`
	// GapReason holds the error detail for gap entries.
	GapReason string `json:"gap_reason,omitempty"`
	// RecordedAt is when the entry was merged.
	RecordedAt time.Time `json:"recorded_at"`
}

// Key returns the unique context key for this entry.
func (e ContextEntry) Key() string {
	return ContextKey(e.StageIndex, e.Worker)
}

// ContextKey builds the context key for a stage index and worker name.
func ContextKey(stageIndex int, worker string) string {
	return fmt.Sprintf("%d:%s", stageIndex, worker)
}

// Run is the archived record of a workflow run. The live run state is owned
// by the orchestrator; this record is what persists for status queries.
type Run struct {
	// ID is the short unique run identifier.
	ID string `json:"id"`
	// RequestText is the original request.
	RequestText string `json:"request_text"`
	// Workflow is the resolved template name.
	Workflow string `json:"workflow"`
	// Phase is the classified phase, empty when an override was used.
	Phase Phase `json:"phase,omitempty"`
	// Confidence is the classification confidence.
	Confidence float64 `json:"confidence"`
	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`
	// CurrentStage is the zero-based index of the stage in progress, or
	// the stage count once completed.
	CurrentStage int `json:"current_stage"`
	// FailedWorker names the worker that could not complete, if any.
	FailedWorker string `json:"failed_worker,omitempty"`
	// Error holds the run-level error detail, if any.
	Error string `json:"error,omitempty"`
	// StartedAt is when the run entered Running.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the run reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
