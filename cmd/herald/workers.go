package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List registered workers",
	RunE:  runWorkers,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(false)
	if err != nil {
		return err
	}

	for _, name := range rt.registry.Names() {
		desc, _ := rt.registry.Get(name)
		fmt.Printf("%s  %s\n", color.New(color.Bold).Sprint(desc.Name),
			color.New(color.Faint).Sprintf("[%s]", strings.Join(desc.Capabilities, ", ")))
		if desc.Accepts != "" {
			fmt.Printf("  accepts:  %s\n", desc.Accepts)
		}
		if desc.Produces != "" {
			fmt.Printf("  produces: %s\n", desc.Produces)
		}
	}
	return nil
}
