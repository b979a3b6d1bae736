package models

import "testing"

func TestStageValidate(t *testing.T) {
	tests := []struct {
		name    string
		stage   Stage
		wantErr bool
	}{
		{"valid single", Single("implementer"), false},
		{"valid parallel", Parallel("tester", "reviewer"), false},
		{"single with two workers", Stage{Type: StageSingle, Workers: []string{"a", "b"}}, true},
		{"single with none", Stage{Type: StageSingle}, true},
		{"parallel empty", Stage{Type: StageParallel}, true},
		{"parallel duplicate member", Parallel("tester", "tester"), true},
		{"empty worker name", Stage{Type: StageSingle, Workers: []string{""}}, true},
		{"unknown type", Stage{Type: "fanout", Workers: []string{"a"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stage.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestSortedWorkersDoesNotMutate(t *testing.T) {
	s := Parallel("gamma", "alpha", "beta")

	sorted := s.SortedWorkers()
	if sorted[0] != "alpha" || sorted[1] != "beta" || sorted[2] != "gamma" {
		t.Errorf("SortedWorkers = %v", sorted)
	}
	if s.Workers[0] != "gamma" {
		t.Error("SortedWorkers mutated the stage")
	}
}

func TestWorkflowTemplateValidate(t *testing.T) {
	valid := WorkflowTemplate{
		Name:   "Flow",
		Stages: []Stage{Single("a"), Parallel("b", "c")},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}

	if err := (WorkflowTemplate{Name: "Empty"}).Validate(); err == nil {
		t.Error("template with no stages accepted")
	}
	if err := (WorkflowTemplate{Stages: []Stage{Single("a")}}).Validate(); err == nil {
		t.Error("unnamed template accepted")
	}
}

func TestWorkerNamesDeduplicated(t *testing.T) {
	template := WorkflowTemplate{
		Name:   "Flow",
		Stages: []Stage{Single("a"), Parallel("b", "a"), Single("c")},
	}
	names := template.WorkerNames()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("WorkerNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("WorkerNames[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestPhasePriorityOrder(t *testing.T) {
	phases := AllPhases()
	for i := 1; i < len(phases); i++ {
		if phases[i-1].Priority() >= phases[i].Priority() {
			t.Errorf("AllPhases not in strict priority order at %d: %s, %s", i, phases[i-1], phases[i])
		}
	}
	if !PhaseEmergency.Valid() || Phase("bogus").Valid() {
		t.Error("Valid() misclassifies phases")
	}
}

func TestRunStatusTerminal(t *testing.T) {
	for _, s := range []RunStatus{RunCompleted, RunFailed, RunAborted} {
		if !s.Terminal() {
			t.Errorf("%s not terminal", s)
		}
	}
	for _, s := range []RunStatus{RunPending, RunRunning} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
}

func TestContextKey(t *testing.T) {
	e := ContextEntry{StageIndex: 2, Worker: "tester"}
	if e.Key() != "2:tester" {
		t.Errorf("Key = %q", e.Key())
	}
	if ContextKey(0, "a") == ContextKey(1, "a") {
		t.Error("keys for different stages collide")
	}
}
