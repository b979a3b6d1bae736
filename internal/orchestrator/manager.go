package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/herald-ai/herald/pkg/models"
)

// ErrRunNotFound is returned when a run ID is not tracked by the manager.
var ErrRunNotFound = fmt.Errorf("run not found")

// Manager owns a set of concurrent runs. It accepts requests, executes
// each run on its own goroutine, fans every run's events into one
// aggregated channel, and answers status, result, and abort queries by ID.
type Manager struct {
	cfg Config

	mu   sync.RWMutex
	runs map[string]*Run

	events  chan Event
	wg      sync.WaitGroup
	stopped bool
}

// NewManager creates a manager. The aggregated event channel is buffered;
// slow consumers lose events rather than stalling runs.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Manager{
		cfg:    cfg,
		runs:   make(map[string]*Run),
		events: make(chan Event, buffer),
	}, nil
}

// Events returns the aggregated event channel for all runs. Closed by Stop.
func (m *Manager) Events() <-chan Event { return m.events }

// Submit creates a run for the request and starts executing it. It returns
// immediately with the run; the outcome is observed through Status, Result,
// and the event stream.
func (m *Manager) Submit(ctx context.Context, req models.Request) (*Run, error) {
	r, err := NewRun(m.cfg, req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, fmt.Errorf("manager is stopped")
	}
	m.runs[r.ID()] = r
	m.mu.Unlock()

	// Forward the run's events into the aggregated channel until the run
	// closes its channel.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for ev := range r.Events() {
			select {
			case m.events <- ev:
			default:
			}
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := r.Execute(ctx); err != nil {
			log.Printf("[manager] run %s finished with error: %v", r.ID(), err)
		}
	}()

	log.Printf("[manager] submitted run %s (workflow %s)", r.ID(), r.Template().Name)
	return r, nil
}

// Get returns a tracked run by ID.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, nil
}

// Status returns the archival snapshot for a tracked run.
func (m *Manager) Status(id string) (models.Run, error) {
	r, err := m.Get(id)
	if err != nil {
		return models.Run{}, err
	}
	return r.Snapshot(), nil
}

// Result returns the accumulated context for a tracked run. For a running
// run this is the context so far; for a terminal run it is the final result.
func (m *Manager) Result(id string) ([]models.ContextEntry, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return r.ContextView(), nil
}

// Abort cancels a tracked run.
func (m *Manager) Abort(id string) error {
	r, err := m.Get(id)
	if err != nil {
		return err
	}
	r.Abort()
	return nil
}

// List returns snapshots of all tracked runs.
func (m *Manager) List() []models.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.Snapshot())
	}
	return out
}

// ActiveCount returns the number of runs not yet in a terminal state.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.runs {
		if !r.Status().Terminal() {
			n++
		}
	}
	return n
}

// Stop aborts all non-terminal runs, waits for their control loops to
// exit, and closes the aggregated event channel. The manager accepts no
// submissions after Stop.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	for _, r := range m.runs {
		r.Abort()
	}
	m.mu.Unlock()

	m.wg.Wait()
	close(m.events)
	log.Printf("[manager] stopped")
}
