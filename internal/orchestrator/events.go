package orchestrator

import (
	"sync/atomic"
	"time"
)

// EventType represents the type of run event.
type EventType string

const (
	// EventRunStarted indicates the run entered the Running state.
	EventRunStarted EventType = "run_started"
	// EventStageStarted indicates a stage began dispatching.
	EventStageStarted EventType = "stage_started"
	// EventWorkerStarted indicates one worker dispatch began.
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerCompleted indicates a worker dispatch succeeded.
	EventWorkerCompleted EventType = "worker_completed"
	// EventWorkerFailed indicates a worker exhausted its retry.
	EventWorkerFailed EventType = "worker_failed"
	// EventGapRecorded indicates a best-effort member failed and a gap
	// marker was written to the context.
	EventGapRecorded EventType = "gap_recorded"
	// EventStageCompleted indicates a stage's results were merged.
	EventStageCompleted EventType = "stage_completed"
	// EventRunCompleted indicates the run finished every stage.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed indicates the run reached the Failed state.
	EventRunFailed EventType = "run_failed"
	// EventRunAborted indicates the run was cancelled.
	EventRunAborted EventType = "run_aborted"
)

// Event is emitted by a run's control loop. Events feed the TUI and logs;
// they are advisory and never carry authoritative state.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the emitting run.
	RunID string
	// Stage is the zero-based stage index, if applicable.
	Stage int
	// Worker is the related worker name, if applicable.
	Worker string
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Attempts is the dispatch attempt count for worker events.
	Attempts int
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emitter delivers events to a buffered channel without ever blocking the
// control loop. Events that find the buffer full are counted and dropped.
type emitter struct {
	ch      chan Event
	dropped atomic.Uint64
}

func newEmitter(buffer int) *emitter {
	if buffer <= 0 {
		buffer = 100
	}
	return &emitter{ch: make(chan Event, buffer)}
}

func (e *emitter) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *emitter) close() {
	close(e.ch)
}

// Dropped returns how many events were discarded due to a full buffer.
func (e *emitter) Dropped() uint64 {
	return e.dropped.Load()
}
