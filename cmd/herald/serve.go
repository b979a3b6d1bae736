package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Herald HTTP API",
	Long: `Start the HTTP API for submitting and querying runs.

Endpoints:
  POST /runs             submit a request, returns the run ID
  GET  /runs             list tracked runs
  GET  /runs/{id}        run status
  GET  /runs/{id}/result accumulated context (final result when terminal)
  POST /runs/{id}/abort  cancel a run
  GET  /health           liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(true)
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := orchestrator.NewManager(rt.orchestrator)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = rt.cfg.Server.Addr
	}

	srv := server.New(manager, rt.store, addr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	fmt.Printf("herald API listening on %s\n", addr)

	select {
	case <-sigCh:
		fmt.Println("\nshutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	manager.Stop()
	return nil
}
