package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/herald-ai/herald/internal/catalog"
	"github.com/herald-ai/herald/internal/classify"
	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/internal/worker"
	"github.com/herald-ai/herald/pkg/models"
)

func testManager(t *testing.T) *orchestrator.Manager {
	t.Helper()

	registry, err := worker.NewRegistry([]models.WorkerDescriptor{
		{Name: "implementer", Capabilities: []string{"implementation"}},
		{Name: "tester", Capabilities: []string{"testing"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	template := models.WorkflowTemplate{
		Name:   "Quick",
		Stages: []models.Stage{models.Single("implementer"), models.Single("tester")},
	}
	phases := make(map[models.Phase]string)
	for _, p := range models.AllPhases() {
		phases[p] = "Quick"
	}
	cat, err := catalog.New([]models.WorkflowTemplate{template}, phases)
	if err != nil {
		t.Fatal(err)
	}

	inv := worker.InvokerFunc(func(_ context.Context, desc models.WorkerDescriptor, _ []models.ContextEntry, _ models.Request) (string, map[string]string, error) {
		return desc.Name + " output", nil, nil
	})

	m, err := orchestrator.NewManager(orchestrator.Config{
		Registry:   registry,
		Catalog:    cat,
		Dispatcher: worker.NewDispatcher(inv, time.Second),
		Classifier: classify.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Stop)
	return m
}

func submitRun(t *testing.T, ts *httptest.Server, body string) submitResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/runs", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /runs status = %d, want 202", resp.StatusCode)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return out
}

func waitCompleted(t *testing.T, ts *httptest.Server, id string) models.Run {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Get(ts.URL + "/runs/" + id)
		if err != nil {
			t.Fatalf("GET /runs/%s: %v", id, err)
		}
		var run models.Run
		err = json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode run: %v", err)
		}
		if run.Status.Terminal() {
			return run
		}
		select {
		case <-deadline:
			t.Fatalf("run %s never finished", id)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmitStatusResult(t *testing.T) {
	srv := New(testManager(t), nil, "")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sub := submitRun(t, ts, `{"text": "implement the export endpoint"}`)
	if sub.ID == "" {
		t.Fatal("submit returned empty run ID")
	}
	if sub.Workflow != "Quick" {
		t.Errorf("workflow = %s", sub.Workflow)
	}

	run := waitCompleted(t, ts, sub.ID)
	if run.Status != models.RunCompleted {
		t.Fatalf("status = %s, want completed", run.Status)
	}

	resp, err := http.Get(ts.URL + "/runs/" + sub.ID + "/result")
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	defer resp.Body.Close()
	var entries []models.ContextEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("result has %d entries, want 2", len(entries))
	}
	if entries[0].Artifact != "implementer output" {
		t.Errorf("entries[0].Artifact = %q", entries[0].Artifact)
	}
}

func TestSubmitValidation(t *testing.T) {
	srv := New(testManager(t), nil, "")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing text", `{}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown workflow", `{"text": "x", "workflow": "NoSuchFlow"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/runs", "application/json", bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestUnknownRun404(t *testing.T) {
	srv := New(testManager(t), nil, "")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/runs/nope", "/runs/nope/result"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestAbortEndpoint(t *testing.T) {
	srv := New(testManager(t), nil, "")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sub := submitRun(t, ts, `{"text": "quick task"}`)

	resp, err := http.Post(ts.URL+"/runs/"+sub.ID+"/abort", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("abort status = %d, want 204", resp.StatusCode)
	}

	run := waitCompleted(t, ts, sub.ID)
	// The run may have finished before the abort landed; either terminal
	// state is acceptable, but it must be terminal.
	if !run.Status.Terminal() {
		t.Errorf("status = %s, want terminal", run.Status)
	}
}

func TestHealth(t *testing.T) {
	srv := New(testManager(t), nil, "")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
