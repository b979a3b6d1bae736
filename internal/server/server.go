// Package server exposes Herald's run manager over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/herald-ai/herald/internal/catalog"
	"github.com/herald-ai/herald/internal/orchestrator"
	"github.com/herald-ai/herald/internal/state"
	"github.com/herald-ai/herald/pkg/models"
)

// Server serves the run submission and query API.
type Server struct {
	manager *orchestrator.Manager
	store   state.Store // optional, for runs no longer tracked in memory
	server  *http.Server
	addr    string
}

// New creates a server for the given manager. store may be nil; when set,
// run lookups fall back to the archive for runs the manager no longer
// tracks.
func New(manager *orchestrator.Manager, store state.Store, addr string) *Server {
	return &Server{manager: manager, store: store, addr: addr}
}

// submitRequest is the POST /runs body.
type submitRequest struct {
	Text string `json:"text"`
	// Workflow optionally bypasses classification.
	Workflow string `json:"workflow,omitempty"`
}

type submitResponse struct {
	ID         string  `json:"id"`
	Workflow   string  `json:"workflow"`
	Phase      string  `json:"phase,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router builds the chi router. Exposed separately from ListenAndServe so
// tests can drive it with httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleStatus)
		r.Get("/{id}/result", s.handleResult)
		r.Post("/{id}/abort", s.handleAbort)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// ListenAndServe starts the HTTP server. The context is the base context
// for all requests; cancelling it does not stop the listener, use Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	log.Printf("[server] listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	// Runs outlive the HTTP request; they execute against the server's
	// base context, not the request context.
	run, err := s.manager.Submit(context.WithoutCancel(r.Context()), models.NewRequest(req.Text, req.Workflow))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrUnknownWorkflow) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	cls := run.Classification()
	writeJSON(w, http.StatusAccepted, submitResponse{
		ID:         run.ID(),
		Workflow:   run.Template().Name,
		Phase:      string(cls.Phase),
		Confidence: cls.Confidence,
		Status:     string(run.Status()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.manager.Status(id)
	if err != nil {
		if s.store != nil {
			if archived, serr := s.store.GetRun(id); serr == nil {
				writeJSON(w, http.StatusOK, archived)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := s.manager.Result(id)
	if err != nil {
		if s.store != nil {
			if archived, serr := s.store.GetContext(id); serr == nil && len(archived) > 0 {
				writeJSON(w, http.StatusOK, archived)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Abort(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] failed to encode response: %v", err)
	}
}
