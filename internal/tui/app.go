// Package tui provides the terminal user interface for watching a Herald
// run: the stage pipeline, per-worker status, and a rolling event log.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/pkg/models"
)

// workerState tracks one worker's progress within a stage.
type workerState int

const (
	workerPending workerState = iota
	workerRunning
	workerDone
	workerFailed
	workerGap
)

// RunEventMsg wraps an orchestrator event for the TUI.
type RunEventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the run's event channel has closed.
type RunDoneMsg struct{}

// LogEntry represents one line in the event log.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// stageView is the display state for one workflow stage.
type stageView struct {
	stage   models.Stage
	workers map[string]workerState
	// attempts per worker, shown when > 1
	attempts map[string]int
	done     bool
}

// App is the main bubbletea model for watching a run.
type App struct {
	// runID is the run being watched.
	runID string
	// workflow is the resolved template name.
	workflow string
	// stages holds per-stage display state.
	stages []stageView
	// currentStage is the index the run is executing.
	currentStage int
	// logs is the rolling event log.
	logs []LogEntry
	// spinner animates while the run is active.
	spinner spinner.Model
	// status is the run's last known status.
	status models.RunStatus
	// finalMessage holds the terminal-state summary line.
	finalMessage string
	width        int
	height       int
	quitting     bool
	done         bool
}

// New creates an App for a run's template.
func New(runID string, template models.WorkflowTemplate) *App {
	stages := make([]stageView, len(template.Stages))
	for i, st := range template.Stages {
		workers := make(map[string]workerState, len(st.Workers))
		for _, w := range st.Workers {
			workers[w] = workerPending
		}
		stages[i] = stageView{
			stage:    st,
			workers:  workers,
			attempts: make(map[string]int),
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &App{
		runID:    runID,
		workflow: template.Name,
		stages:   stages,
		spinner:  sp,
		status:   models.RunPending,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case RunEventMsg:
		a.handleEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(a.viewStages())
	b.WriteString("\n")
	b.WriteString(a.viewLogs())
	b.WriteString("\n")
	b.WriteString(a.viewFooter())
	return b.String()
}

func (a *App) viewHeader() string {
	title := titleStyle.Render(fmt.Sprintf(" herald run %s ", a.runID))
	sub := subtitleStyle.Render(fmt.Sprintf("workflow: %s", a.workflow))
	return title + "  " + sub
}

func (a *App) viewStages() string {
	var b strings.Builder
	for i, sv := range a.stages {
		marker := "  "
		if i == a.currentStage && !a.done {
			marker = a.spinner.View()
		}

		label := "single"
		if sv.stage.Type == models.StageParallel {
			label = "parallel"
			if sv.stage.BestEffort {
				label = "parallel, best-effort"
			}
		}
		b.WriteString(fmt.Sprintf("%s stage %d (%s)\n", marker, i, label))

		for _, w := range sv.stage.SortedWorkers() {
			b.WriteString("     ")
			b.WriteString(a.renderWorker(sv, w))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a *App) renderWorker(sv stageView, name string) string {
	var icon, line string
	switch sv.workers[name] {
	case workerRunning:
		icon = runningStyle.Render("●")
		line = name
	case workerDone:
		icon = doneStyle.Render("✓")
		line = name
	case workerFailed:
		icon = failedStyle.Render("✗")
		line = name
	case workerGap:
		icon = gapStyle.Render("~")
		line = name + " (gap)"
	default:
		icon = pendingStyle.Render("○")
		line = pendingStyle.Render(name)
	}
	if n := sv.attempts[name]; n > 1 {
		line += dimStyle.Render(fmt.Sprintf(" (attempt %d)", n))
	}
	return icon + " " + line
}

func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return ""
	}

	// Show the most recent entries (up to 8)
	start := 0
	if len(a.logs) > 8 {
		start = len(a.logs) - 8
	}

	var b strings.Builder
	for _, entry := range a.logs[start:] {
		ts := dimStyle.Render(entry.Timestamp.Format("15:04:05"))
		level := entry.Level
		if level == "ERROR" {
			level = failedStyle.Render(level)
		} else {
			level = dimStyle.Render(level)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, level, entry.Message))
	}
	return b.String()
}

func (a *App) viewFooter() string {
	if a.done {
		switch a.status {
		case models.RunCompleted:
			return doneStyle.Render("✓ "+a.finalMessage) + dimStyle.Render("  press q to exit")
		case models.RunAborted:
			return gapStyle.Render("~ "+a.finalMessage) + dimStyle.Render("  press q to exit")
		default:
			return failedStyle.Render("✗ "+a.finalMessage) + dimStyle.Render("  press q to exit")
		}
	}
	return dimStyle.Render("press q to detach (run continues)")
}

// handleEvent folds one orchestrator event into display state.
func (a *App) handleEvent(ev orchestrator.Event) {
	level := "INFO"
	msg := ev.Message
	if ev.Err != nil {
		level = "ERROR"
		if msg == "" {
			msg = ev.Err.Error()
		}
	}
	if msg == "" {
		msg = string(ev.Type)
	}
	if ev.Worker != "" {
		msg = ev.Worker + ": " + msg
	}
	a.logs = append(a.logs, LogEntry{Timestamp: ev.Timestamp, Level: level, Message: msg})

	switch ev.Type {
	case orchestrator.EventRunStarted:
		a.status = models.RunRunning

	case orchestrator.EventStageStarted:
		a.currentStage = ev.Stage

	case orchestrator.EventWorkerStarted:
		a.setWorker(ev.Stage, ev.Worker, workerRunning)

	case orchestrator.EventWorkerCompleted:
		a.setWorker(ev.Stage, ev.Worker, workerDone)
		a.setAttempts(ev.Stage, ev.Worker, ev.Attempts)

	case orchestrator.EventWorkerFailed:
		a.setWorker(ev.Stage, ev.Worker, workerFailed)
		a.setAttempts(ev.Stage, ev.Worker, ev.Attempts)

	case orchestrator.EventGapRecorded:
		a.setWorker(ev.Stage, ev.Worker, workerGap)

	case orchestrator.EventStageCompleted:
		if ev.Stage >= 0 && ev.Stage < len(a.stages) {
			a.stages[ev.Stage].done = true
		}

	case orchestrator.EventRunCompleted:
		a.status = models.RunCompleted
		a.finalMessage = "run completed"

	case orchestrator.EventRunFailed:
		a.status = models.RunFailed
		a.finalMessage = ev.Message
		if a.finalMessage == "" {
			a.finalMessage = "run failed"
		}

	case orchestrator.EventRunAborted:
		a.status = models.RunAborted
		a.finalMessage = "run aborted"
	}
}

func (a *App) setWorker(stage int, worker string, st workerState) {
	if stage < 0 || stage >= len(a.stages) {
		return
	}
	a.stages[stage].workers[worker] = st
}

func (a *App) setAttempts(stage int, worker string, attempts int) {
	if stage < 0 || stage >= len(a.stages) || attempts == 0 {
		return
	}
	a.stages[stage].attempts[worker] = attempts
}

// Watch runs the TUI against a run's event channel. It blocks until the
// user quits or the run finishes and the user dismisses the final view.
func Watch(run *orchestrator.Run) error {
	app := New(run.ID(), run.Template())
	p := tea.NewProgram(app, tea.WithAltScreen())

	go func() {
		for ev := range run.Events() {
			p.Send(RunEventMsg{Event: ev})
		}
		p.Send(RunDoneMsg{})
	}()

	_, err := p.Run()
	return err
}
