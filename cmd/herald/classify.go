package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <request>",
	Short: "Show how a request would be classified",
	Long: `Classify a request without running anything.

Prints the phase, the match confidence, and the workflow template the
phase maps to. Useful for tuning trigger phrases and phase tables.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(false)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	cls := rt.classifier.Classify(text)

	template, err := rt.catalog.Resolve(cls, "")
	if err != nil {
		return err
	}

	fmt.Printf("phase:      %s\n", color.CyanString(string(cls.Phase)))
	fmt.Printf("confidence: %.2f (%d phrase matches)\n", cls.Confidence, cls.Matches)
	fmt.Printf("workflow:   %s\n", color.CyanString(template.Name))
	if cls.Matches == 0 {
		fmt.Println("\nNo trigger phrases matched; this is the fallback phase.")
	}
	return nil
}
