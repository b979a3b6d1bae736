package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/internal/signals"
	"github.com/herald-ai/herald/internal/tui"
	"github.com/herald-ai/herald/pkg/models"
)

var (
	runWorkflow string
	runNoTUI    bool
	runShowCtx  bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Classify a request and execute its workflow",
	Long: `Run a request through Herald.

The request text is classified into a phase unless --workflow names a
template explicitly. The resolved workflow then executes stage by stage;
progress is shown in a TUI unless --no-tui is set.

Examples:
  herald run "production is down, hotfix the login path"
  herald run "add pagination to the users endpoint" --workflow QuickCycle
  herald run "write a migration plan" --no-tui`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runWorkflow, "workflow", "w", "", "Workflow template to use, bypassing classification")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Log progress to stdout instead of the TUI")
	runCmd.Flags().BoolVar(&runShowCtx, "show-context", false, "Print the final context after the run")
}

func runRun(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	rt, err := buildRuntime(true)
	if err != nil {
		return err
	}
	defer rt.close()

	workflow := runWorkflow
	if workflow == "" {
		workflow = rt.cfg.Defaults.Workflow
	}

	run, err := orchestrator.NewRun(rt.orchestrator, models.NewRequest(text, workflow))
	if err != nil {
		return err
	}

	cls := run.Classification()
	if workflow == "" {
		fmt.Printf("Classified as %s (confidence %.2f), workflow %s\n",
			color.CyanString(string(cls.Phase)), cls.Confidence, color.CyanString(run.Template().Name))
	} else {
		fmt.Printf("Workflow override: %s\n", color.CyanString(run.Template().Name))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Ctrl-C and the .herald/signals/abort file both abort the run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		run.Abort()
	}()

	if watcher, werr := signals.NewWatcher("."); werr == nil {
		defer watcher.Close()
		// Leftover signal files from an earlier run must not steer this one.
		watcher.Clear()
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for range ticker.C {
				if run.Status().Terminal() {
					return
				}
				if watcher.ShouldAbort() {
					run.Abort()
					return
				}
				if watcher.ShouldPause() {
					run.Pause()
				} else {
					run.Resume()
				}
			}
		}()
	}

	execErr := make(chan error, 1)
	go func() { execErr <- run.Execute(ctx) }()

	if runNoTUI {
		for ev := range run.Events() {
			printEvent(ev)
		}
	} else {
		if err := tui.Watch(run); err != nil {
			// TUI failure should not kill the run; fall back to draining.
			for ev := range run.Events() {
				printEvent(ev)
			}
		}
	}

	err = <-execErr

	if runShowCtx {
		printContext(run.ContextView())
	}

	switch run.Status() {
	case models.RunCompleted:
		fmt.Printf("%s run %s completed\n", color.GreenString("✓"), run.ID())
	case models.RunAborted:
		fmt.Printf("%s run %s aborted\n", color.YellowString("~"), run.ID())
	default:
		fmt.Printf("%s run %s failed\n", color.RedString("✗"), run.ID())
	}
	return err
}

func printEvent(ev orchestrator.Event) {
	ts := ev.Timestamp.Format("15:04:05")
	switch {
	case ev.Err != nil:
		fmt.Printf("%s %s %s: %v\n", ts, color.RedString(string(ev.Type)), ev.Worker, ev.Err)
	case ev.Worker != "":
		fmt.Printf("%s %s %s %s\n", ts, string(ev.Type), ev.Worker, ev.Message)
	default:
		fmt.Printf("%s %s %s\n", ts, string(ev.Type), ev.Message)
	}
}

func printContext(entries []models.ContextEntry) {
	if len(entries) == 0 {
		fmt.Println("\n(no context entries)")
		return
	}
	fmt.Println("\nAccumulated context:")
	for _, e := range entries {
		header := fmt.Sprintf("--- stage %d / %s ---", e.StageIndex, e.Worker)
		if e.Gap {
			fmt.Printf("%s\n%s\n", color.YellowString(header), "NOT AVAILABLE: "+e.GapReason)
			continue
		}
		fmt.Printf("%s\n%s\n", color.CyanString(header), e.Artifact)
	}
}
