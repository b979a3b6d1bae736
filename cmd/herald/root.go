package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/herald-ai/herald/internal/catalog"
	"github.com/herald-ai/herald/internal/classify"
	"github.com/herald-ai/herald/internal/config"
	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/internal/state"
	"github.com/herald-ai/herald/internal/worker"
)

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "Request router and workflow orchestrator for AI workers",
	Long: `Herald takes a free-text request, classifies it into a development
phase, resolves a workflow template, and drives specialized AI workers
through the template's stages, accumulating their outputs into a shared
context.

Core capabilities:
- Classifies requests by trigger phrases into nine phases
- Resolves workflows from a layered catalog (built-ins plus YAML overrides)
- Runs sequential and parallel stages with a one-retry policy per worker
- Records best-effort gaps instead of failing optional work
- Archives runs and their context to SQLite`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(workflowsCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime bundles everything a run needs, built once per command.
type runtime struct {
	cfg          *config.Config
	registry     *worker.Registry
	catalog      *catalog.Catalog
	classifier   *classify.Classifier
	orchestrator orchestrator.Config
	store        state.Store
}

// buildRuntime loads config and assembles the orchestrator collaborators.
// withInvoker controls whether the Claude backend is constructed; commands
// that never dispatch workers skip it so they work without credentials.
func buildRuntime(withInvoker bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	registry, err := worker.LoadRegistry(cfg.Paths.Workers)
	if err != nil {
		return nil, fmt.Errorf("load worker registry: %w", err)
	}

	cat, err := catalog.Load(cfg.Paths.Workflows)
	if err != nil {
		return nil, fmt.Errorf("load workflow catalog: %w", err)
	}

	// Catalog integrity: every worker a template names must exist.
	if err := cat.ValidateWorkers(registry.Has); err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		registry:   registry,
		catalog:    cat,
		classifier: classify.New(),
	}

	if !withInvoker {
		return rt, nil
	}

	invoker, err := worker.NewClaudeInvoker(worker.ClaudeConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		MaxTokens:     int64(cfg.Anthropic.MaxTokens),
	})
	if err != nil {
		return nil, err
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	rt.store = store

	rt.orchestrator = orchestrator.Config{
		Registry:    registry,
		Catalog:     cat,
		Dispatcher:  worker.NewDispatcher(invoker, cfg.Timeouts.Worker),
		Classifier:  rt.classifier,
		Store:       store,
		EventBuffer: cfg.Defaults.EventBuffer,
	}
	return rt, nil
}

// openStore opens the run archive: the project database if a .herald
// directory exists, the global one otherwise.
func openStore() (state.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.GlobalDBPath()
	if _, err := os.Stat(state.ProjectDBPath(cwd)); err == nil {
		dbPath = state.ProjectDBPath(cwd)
	} else if _, err := os.Stat(".herald"); err == nil {
		dbPath = state.ProjectDBPath(cwd)
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func (rt *runtime) close() {
	if rt.store != nil {
		rt.store.Close()
	}
}
