// Package api serves stored runs over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/status"
	"github.com/meow-stack/stagefan/internal/store"
	"github.com/meow-stack/stagefan/internal/types"
)

// Server answers read-only queries against a run store.
type Server struct {
	Store   store.Store
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewHandler builds the router. metrics may be nil, in which case /metrics
// is not mounted.
func NewHandler(s store.Store, metrics http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{Store: s, Metrics: metrics, Logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", server.Health)
	r.Get("/runs", server.ListRuns)
	r.Get("/runs/{id}", server.GetRun)
	r.Get("/runs/{id}/summary", server.GetSummary)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListRuns handles GET /runs?status=&pipeline=&limit=.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:   types.RunStatus(q.Get("status")),
		Pipeline: q.Get("pipeline"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid status: "+string(filter.Status))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		filter.Limit = limit
	}

	runs, err := s.Store.List(r.Context(), filter)
	if err != nil {
		s.Logger.Error("listing runs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*types.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// GetSummary handles GET /runs/{id}/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, status.NewRunSummary(run))
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*types.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.Store.Get(r.Context(), id)
	if err != nil {
		if serrors.HasCode(err, serrors.CodeRunNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		s.Logger.Error("loading run failed", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return run, true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
