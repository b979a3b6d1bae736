package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/herald-ai/herald/pkg/models"
)

func waitTerminal(t *testing.T, m *Manager, id string) models.Run {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("run %s never reached a terminal state", id)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManagerSubmitAndStatus(t *testing.T) {
	inv := newScriptedInvoker()
	inv.on("implementer", succeed("done"))

	template := models.WorkflowTemplate{
		Name:   "Quick",
		Stages: []models.Stage{models.Single("implementer")},
	}
	cfg := testConfig(t, inv, template, time.Second)

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	run, err := m.Submit(context.Background(), models.NewRequest("do it", ""))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitTerminal(t, m, run.ID())
	if snap.Status != models.RunCompleted {
		t.Errorf("status = %s, want completed", snap.Status)
	}

	result, err := m.Result(run.ID())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(result) != 1 || result[0].Artifact != "done" {
		t.Errorf("result = %+v", result)
	}
}

func TestManagerConcurrentRuns(t *testing.T) {
	inv := newScriptedInvoker()
	template := models.WorkflowTemplate{
		Name:   "Quick",
		Stages: []models.Stage{models.Single("implementer")},
	}
	cfg := testConfig(t, inv, template, time.Second)

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	var ids []string
	for i := 0; i < 5; i++ {
		run, err := m.Submit(context.Background(), models.NewRequest("task", ""))
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		ids = append(ids, run.ID())
	}

	for _, id := range ids {
		snap := waitTerminal(t, m, id)
		if snap.Status != models.RunCompleted {
			t.Errorf("run %s status = %s", id, snap.Status)
		}
	}
	if len(m.List()) != 5 {
		t.Errorf("List returned %d runs, want 5", len(m.List()))
	}
}

func TestManagerAbort(t *testing.T) {
	started := make(chan struct{}, 1)
	inv := newScriptedInvoker()
	inv.on("worker", func(ctx context.Context, _ int) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return "", ctx.Err()
	})

	template := models.WorkflowTemplate{
		Name:   "Long",
		Stages: []models.Stage{models.Single("worker")},
	}
	cfg := testConfig(t, inv, template, 10*time.Second)

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	run, err := m.Submit(context.Background(), models.NewRequest("long", ""))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	if err := m.Abort(run.ID()); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	snap := waitTerminal(t, m, run.ID())
	if snap.Status != models.RunAborted {
		t.Errorf("status = %s, want aborted", snap.Status)
	}
}

func TestManagerUnknownRun(t *testing.T) {
	inv := newScriptedInvoker()
	template := models.WorkflowTemplate{
		Name:   "Quick",
		Stages: []models.Stage{models.Single("implementer")},
	}
	m, err := NewManager(testConfig(t, inv, template, time.Second))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	if _, err := m.Status("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Status unknown = %v, want ErrRunNotFound", err)
	}
	if err := m.Abort("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Abort unknown = %v, want ErrRunNotFound", err)
	}
}

func TestManagerStopRejectsSubmissions(t *testing.T) {
	inv := newScriptedInvoker()
	template := models.WorkflowTemplate{
		Name:   "Quick",
		Stages: []models.Stage{models.Single("implementer")},
	}
	m, err := NewManager(testConfig(t, inv, template, time.Second))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.Stop()
	if _, err := m.Submit(context.Background(), models.NewRequest("late", "")); err == nil {
		t.Fatal("Submit after Stop succeeded")
	}
}
