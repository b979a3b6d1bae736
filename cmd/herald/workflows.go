package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/herald-ai/herald/pkg/models"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List available workflow templates",
	Long: `List every workflow template in the catalog with its stages,
and the phase table mapping classifications to templates.`,
	RunE: runWorkflows,
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(false)
	if err != nil {
		return err
	}

	for _, name := range rt.catalog.Names() {
		template, _ := rt.catalog.Get(name)
		fmt.Printf("%s  %s\n", color.New(color.Bold).Sprint(template.Name), color.New(color.Faint).Sprint(template.Description))
		for i, stage := range template.Stages {
			fmt.Printf("  %d. %s\n", i, describeStage(stage))
		}
		fmt.Println()
	}

	fmt.Println("Phase table:")
	table := rt.catalog.PhaseTable()
	phases := make([]string, 0, len(table))
	for p := range table {
		phases = append(phases, string(p))
	}
	sort.Strings(phases)
	for _, p := range phases {
		fmt.Printf("  %-15s -> %s\n", p, table[models.Phase(p)])
	}
	return nil
}

func describeStage(stage models.Stage) string {
	if stage.Type == models.StageSingle {
		return stage.Workers[0]
	}
	suffix := ""
	if stage.BestEffort {
		suffix = " (best-effort)"
	}
	return "parallel: " + strings.Join(stage.SortedWorkers(), ", ") + suffix
}
