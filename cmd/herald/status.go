package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/herald-ai/herald/internal/state"
	"github.com/herald-ai/herald/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show archived runs",
	Long: `Display archived run records.

Without arguments, lists recent runs. With a run ID, shows that run's
record and its accumulated context.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "Number of runs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return showRun(store, args[0])
	}

	runs, err := store.ListRuns(statusLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs. Run 'herald run <request>' to start one.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s  %-14s  %s\n",
			r.ID, statusColor(r.Status), r.Workflow, truncate(r.RequestText, 60))
	}
	return nil
}

func showRun(store state.Store, id string) error {
	r, err := store.GetRun(id)
	if err != nil {
		if errors.Is(err, state.ErrRunNotFound) {
			return fmt.Errorf("no archived run with ID %s", id)
		}
		return err
	}

	fmt.Printf("run:      %s\n", r.ID)
	fmt.Printf("status:   %s\n", statusColor(r.Status))
	fmt.Printf("workflow: %s\n", r.Workflow)
	if r.Phase != "" {
		fmt.Printf("phase:    %s (confidence %.2f)\n", r.Phase, r.Confidence)
	}
	fmt.Printf("request:  %s\n", r.RequestText)
	fmt.Printf("started:  %s\n", r.StartedAt.Format(time.RFC3339))
	if r.CompletedAt != nil {
		fmt.Printf("finished: %s (%s)\n", r.CompletedAt.Format(time.RFC3339),
			r.CompletedAt.Sub(r.StartedAt).Round(time.Second))
	}
	if r.FailedWorker != "" {
		fmt.Printf("failed:   %s at stage %d\n", r.FailedWorker, r.CurrentStage)
	}
	if r.Error != "" {
		fmt.Printf("error:    %s\n", r.Error)
	}

	entries, err := store.GetContext(id)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		printContext(entries)
	}
	return nil
}

func statusColor(s models.RunStatus) string {
	switch s {
	case models.RunCompleted:
		return color.GreenString(string(s))
	case models.RunFailed:
		return color.RedString(string(s))
	case models.RunAborted:
		return color.YellowString(string(s))
	case models.RunRunning:
		return color.CyanString(string(s))
	default:
		return string(s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
