// Package orchestrator executes workflow runs: it steps through a resolved
// template's stages, dispatches workers, merges their outputs into the
// run's context, and owns the run state machine and failure policy.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/herald-ai/herald/internal/catalog"
	"github.com/herald-ai/herald/internal/classify"
	"github.com/herald-ai/herald/internal/state"
	"github.com/herald-ai/herald/internal/worker"
	"github.com/herald-ai/herald/pkg/models"
)

// Config contains the shared, read-only collaborators a run executes
// against. Registry and Catalog are immutable after startup, so any number
// of concurrent runs may share one Config without locking.
type Config struct {
	// Registry is the static worker catalog.
	Registry *worker.Registry
	// Catalog is the workflow template registry.
	Catalog *catalog.Catalog
	// Dispatcher wraps the worker backend with timeout and retry policy.
	Dispatcher *worker.Dispatcher
	// Classifier maps request text to a phase.
	Classifier *classify.Classifier
	// Store optionally archives run records and context entries.
	// Archive failures are logged, never fatal to the run.
	Store state.Store
	// EventBuffer sizes the run event channel. Defaults to 100.
	EventBuffer int
}

func (c Config) validate() error {
	if c.Registry == nil {
		return fmt.Errorf("orchestrator config: Registry is required")
	}
	if c.Catalog == nil {
		return fmt.Errorf("orchestrator config: Catalog is required")
	}
	if c.Dispatcher == nil {
		return fmt.Errorf("orchestrator config: Dispatcher is required")
	}
	if c.Classifier == nil {
		return fmt.Errorf("orchestrator config: Classifier is required")
	}
	return nil
}

// Run is one workflow execution: a request, its resolved template, the
// run state machine, and the run's append-only context. Only the run's own
// control loop mutates it once Execute has been called.
type Run struct {
	id             string
	cfg            Config
	request        models.Request
	classification models.Classification
	template       models.WorkflowTemplate

	mu          sync.RWMutex
	status      models.RunStatus
	stageIndex  int
	failed      string
	errMsg      string
	startedAt   time.Time
	completedAt *time.Time
	paused      bool
	pauseCond   *sync.Cond

	runCtx *Context
	events *emitter

	abortCh   chan struct{}
	abortOnce sync.Once
}

// NewRun accepts a request: classifies it (unless an explicit workflow
// override is present), resolves the template, and returns a run in the
// Pending state. Resolution failure is the only error path; classification
// never fails.
func NewRun(cfg Config, req models.Request) (*Run, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var cls models.Classification
	if req.Workflow == "" {
		cls = cfg.Classifier.Classify(req.Text)
	}

	template, err := cfg.Catalog.Resolve(cls, req.Workflow)
	if err != nil {
		return nil, err
	}

	r := &Run{
		id:             uuid.New().String()[:8],
		cfg:            cfg,
		request:        req,
		classification: cls,
		template:       template,
		status:         models.RunPending,
		runCtx:         NewContext(),
		events:         newEmitter(cfg.EventBuffer),
		abortCh:        make(chan struct{}),
	}
	r.pauseCond = sync.NewCond(&r.mu)
	return r, nil
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Status returns the current run status.
func (r *Run) Status() models.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Template returns the resolved workflow template.
func (r *Run) Template() models.WorkflowTemplate { return r.template }

// Classification returns the classification that selected the template.
// Zero-valued when an explicit override was used.
func (r *Run) Classification() models.Classification { return r.classification }

// Request returns the originating request.
func (r *Run) Request() models.Request { return r.request }

// Events returns the run's event channel. It is closed when the run
// reaches a terminal state.
func (r *Run) Events() <-chan Event { return r.events.ch }

// DroppedEventCount returns how many events were dropped on a full buffer.
func (r *Run) DroppedEventCount() uint64 { return r.events.Dropped() }

// ContextView returns the run's accumulated context in write order.
// Safe to call concurrently with the control loop.
func (r *Run) ContextView() []models.ContextEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runCtx.View()
}

// Snapshot returns the run's archival record.
func (r *Run) Snapshot() models.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Run{
		ID:           r.id,
		RequestText:  r.request.Text,
		Workflow:     r.template.Name,
		Phase:        r.classification.Phase,
		Confidence:   r.classification.Confidence,
		Status:       r.status,
		CurrentStage: r.stageIndex,
		FailedWorker: r.failed,
		Error:        r.errMsg,
		StartedAt:    r.startedAt,
		CompletedAt:  r.completedAt,
	}
}

// Abort cancels the run. In-flight worker calls are signaled to stop and
// their partial results are discarded, not merged. Aborting a terminal run
// is a no-op.
func (r *Run) Abort() {
	r.abortOnce.Do(func() {
		close(r.abortCh)
		// Wake the control loop if it is parked on pause.
		r.mu.Lock()
		r.pauseCond.Broadcast()
		r.mu.Unlock()
	})
}

// Pause stops the control loop from dispatching new stages. In-flight
// stages run to their barrier; pause is honored between stages only.
func (r *Run) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume lifts a pause.
func (r *Run) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	r.pauseCond.Broadcast()
}

// Execute drives the run from Pending to a terminal state. It returns an
// error only for Failed runs and invalid transitions; Completed and
// Aborted both return nil (abort is a normal terminal state, not an
// error). The event channel is closed before Execute returns.
func (r *Run) Execute(ctx context.Context) error {
	r.mu.Lock()
	if r.status != models.RunPending {
		r.mu.Unlock()
		return fmt.Errorf("run %s: cannot execute from status %s", r.id, r.status)
	}
	r.status = models.RunRunning
	r.stageIndex = 0
	r.startedAt = time.Now()
	r.mu.Unlock()

	defer r.events.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Translate Abort() and parent cancellation into loop cancellation,
	// and wake a paused loop so it can observe it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-r.abortCh:
			cancel()
		case <-ctx.Done():
		case <-stop:
			return
		}
		r.mu.Lock()
		r.pauseCond.Broadcast()
		r.mu.Unlock()
	}()

	r.events.emit(Event{
		Type:    EventRunStarted,
		RunID:   r.id,
		Message: fmt.Sprintf("workflow %s (%d stages)", r.template.Name, len(r.template.Stages)),
	})
	r.archiveRun()

	for i, stage := range r.template.Stages {
		// Cancellation is checked before dispatching each new stage.
		if ctx.Err() != nil {
			return r.finishAborted()
		}
		if err := r.waitIfPaused(ctx); err != nil {
			return r.finishAborted()
		}

		r.setStage(i)
		r.events.emit(Event{
			Type:    EventStageStarted,
			RunID:   r.id,
			Stage:   i,
			Message: fmt.Sprintf("%s stage with %d worker(s)", stage.Type, len(stage.Workers)),
		})
		r.archiveRun()

		results := r.runStage(ctx, i, stage)

		// An abort during the stage discards all of its results,
		// including members that finished before the signal.
		if ctx.Err() != nil {
			return r.finishAborted()
		}

		if err := r.mergeStage(i, stage, results); err != nil {
			return err
		}

		r.events.emit(Event{Type: EventStageCompleted, RunID: r.id, Stage: i})
	}

	return r.finishCompleted()
}

// runStage dispatches the stage's worker(s) and waits for the full set to
// report. Every member is dispatched against the same context view, taken
// once before the stage starts: stage N's merges are fully written before
// any stage N+1 dispatch observes them.
func (r *Run) runStage(ctx context.Context, idx int, stage models.Stage) map[string]models.StageResult {
	view := r.ContextView()
	results := make(map[string]models.StageResult, len(stage.Workers))

	if stage.Type == models.StageSingle {
		name := stage.Workers[0]
		results[name] = r.dispatchWorker(ctx, idx, name, view)
		return results
	}

	// Parallel group: dispatch order and completion order are
	// unspecified; the barrier below holds the workflow until every
	// member has reported, successful or not.
	var mu sync.Mutex
	var wg conc.WaitGroup
	for _, name := range stage.Workers {
		name := name
		wg.Go(func() {
			res := r.dispatchWorker(ctx, idx, name, view)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	return results
}

// dispatchWorker runs one worker through the dispatcher and emits the
// worker lifecycle events.
func (r *Run) dispatchWorker(ctx context.Context, idx int, name string, view []models.ContextEntry) models.StageResult {
	desc, ok := r.cfg.Registry.Get(name)
	if !ok {
		// The catalog is validated against the registry at load time;
		// reaching this means the integrity check was bypassed.
		return models.StageResult{
			Worker: name,
			Status: models.StageFailure,
			Err:    "worker not registered",
		}
	}

	r.events.emit(Event{Type: EventWorkerStarted, RunID: r.id, Stage: idx, Worker: name})

	res := r.cfg.Dispatcher.Dispatch(ctx, desc, view, r.request)

	if ctx.Err() != nil {
		// Aborted mid-call; the caller discards this result.
		return res
	}
	if res.Succeeded() {
		r.events.emit(Event{
			Type:     EventWorkerCompleted,
			RunID:    r.id,
			Stage:    idx,
			Worker:   name,
			Attempts: res.Attempts,
		})
	} else {
		r.events.emit(Event{
			Type:     EventWorkerFailed,
			RunID:    r.id,
			Stage:    idx,
			Worker:   name,
			Attempts: res.Attempts,
			Err:      fmt.Errorf("%s", res.Err),
		})
	}
	return res
}

// mergeStage merges a completed stage's results into the context. Members
// are always merged in lexicographic worker-name order so two runs with
// identical inputs produce identical context layouts regardless of
// completion timing. Successful members are merged even when a sibling
// failed; a failed member either records a gap (best-effort stage) or
// fails the run after all merges are written.
func (r *Run) mergeStage(idx int, stage models.Stage, results map[string]models.StageResult) error {
	var terminal *models.StageResult

	for _, name := range stage.SortedWorkers() {
		res, ok := results[name]
		if !ok {
			// Should be impossible past the barrier.
			res = models.StageResult{Worker: name, Status: models.StageFailure, Err: "no result reported"}
		}

		if res.Succeeded() {
			entry := models.ContextEntry{
				StageIndex: idx,
				Worker:     name,
				Artifact:   res.Artifact,
				Metadata:   res.Metadata,
			}
			if err := r.merge(entry); err != nil {
				return r.finishInternal(err)
			}
			continue
		}

		if stage.BestEffort {
			entry := models.ContextEntry{
				StageIndex: idx,
				Worker:     name,
				Gap:        true,
				GapReason:  fmt.Sprintf("%s after %d attempt(s): %s", res.Status, res.Attempts, res.Err),
			}
			if err := r.merge(entry); err != nil {
				return r.finishInternal(err)
			}
			r.events.emit(Event{
				Type:    EventGapRecorded,
				RunID:   r.id,
				Stage:   idx,
				Worker:  name,
				Message: entry.GapReason,
			})
			log.Printf("[run %s] best-effort worker %s left a gap at stage %d: %s", r.id, name, idx, res.Err)
			continue
		}

		if terminal == nil {
			res := res
			terminal = &res
		}
	}

	if terminal != nil {
		return r.finishFailed(idx, *terminal)
	}
	return nil
}

// merge appends one entry under the run lock and archives it.
func (r *Run) merge(entry models.ContextEntry) error {
	r.mu.Lock()
	err := r.runCtx.Merge(entry)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if r.cfg.Store != nil {
		if serr := r.cfg.Store.AppendContext(r.id, entry); serr != nil {
			log.Printf("[run %s] warning: failed to archive context entry %s: %v", r.id, entry.Key(), serr)
		}
	}
	return nil
}

// waitIfPaused parks the control loop between stages while the run is
// paused. Returns an error if the run was cancelled while parked.
func (r *Run) waitIfPaused(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.paused {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-r.abortCh:
			return fmt.Errorf("run aborted")
		default:
		}
		r.pauseCond.Wait()
	}
	return ctx.Err()
}

func (r *Run) setStage(i int) {
	r.mu.Lock()
	r.stageIndex = i
	r.mu.Unlock()
}

func (r *Run) finishCompleted() error {
	r.mu.Lock()
	r.status = models.RunCompleted
	r.stageIndex = len(r.template.Stages)
	now := time.Now()
	r.completedAt = &now
	r.mu.Unlock()

	r.archiveRun()
	r.events.emit(Event{Type: EventRunCompleted, RunID: r.id, Message: "all stages completed"})
	log.Printf("[run %s] completed workflow %s", r.id, r.template.Name)
	return nil
}

func (r *Run) finishFailed(stage int, res models.StageResult) error {
	errMsg := fmt.Sprintf("worker %s could not complete stage %d (%s after %d attempts): %s",
		res.Worker, stage, res.Status, res.Attempts, res.Err)

	r.mu.Lock()
	r.status = models.RunFailed
	r.failed = res.Worker
	r.errMsg = errMsg
	now := time.Now()
	r.completedAt = &now
	r.mu.Unlock()

	r.archiveRun()
	r.events.emit(Event{Type: EventRunFailed, RunID: r.id, Stage: stage, Worker: res.Worker, Message: errMsg})
	log.Printf("[run %s] failed: %s", r.id, errMsg)
	return fmt.Errorf("%s", errMsg)
}

func (r *Run) finishAborted() error {
	r.mu.Lock()
	if r.status.Terminal() {
		r.mu.Unlock()
		return nil
	}
	r.status = models.RunAborted
	now := time.Now()
	r.completedAt = &now
	r.mu.Unlock()

	r.archiveRun()
	r.events.emit(Event{Type: EventRunAborted, RunID: r.id, Message: "run cancelled"})
	log.Printf("[run %s] aborted", r.id)
	return nil
}

// finishInternal handles orchestrator defects such as a context key
// collision. These indicate a bug, not a workload condition.
func (r *Run) finishInternal(err error) error {
	r.mu.Lock()
	r.status = models.RunFailed
	r.errMsg = err.Error()
	now := time.Now()
	r.completedAt = &now
	r.mu.Unlock()

	r.archiveRun()
	r.events.emit(Event{Type: EventRunFailed, RunID: r.id, Err: err, Message: "internal error"})
	log.Printf("[run %s] internal error: %v", r.id, err)
	return err
}

// archiveRun persists the current snapshot. Archive failures never affect
// the run outcome.
func (r *Run) archiveRun() {
	if r.cfg.Store == nil {
		return
	}
	snap := r.Snapshot()
	if err := r.cfg.Store.SaveRun(&snap); err != nil {
		log.Printf("[run %s] warning: failed to archive run: %v", r.id, err)
	}
}
