// Package server is the public face of the build matrix: HTML pages
// rendered from the grid engine, the JSON API the TUI talks to, live
// updates over WebSocket and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Noratrieb/does-it-build/internal/builder"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/store"
	"github.com/Noratrieb/does-it-build/internal/version"
)

// targetStateKey is the cache key for the full matrix payload.
const targetStateKey = "target-state"

// BuildQueue accepts manual sweep requests. *builder.Builder implements
// it; a nil queue turns /trigger-build into 503.
type BuildQueue interface {
	Trigger(nightly string) error
	QueueLen() int
}

type Server struct {
	st     *store.Store
	hub    *Hub
	cache  *Cache
	builds BuildQueue
	mux    *http.ServeMux
}

// New wires the handler. hub must not be nil; cache and builds may be.
func New(st *store.Store, hub *Hub, cache *Cache, builds BuildQueue) *Server {
	s := &Server{
		st:     st,
		hub:    hub,
		cache:  cache,
		builds: builds,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/build", s.handleBuildPage)
	s.mux.HandleFunc("/index.css", s.handleCSS)
	s.mux.HandleFunc("/index.js", s.handleJS)
	s.mux.HandleFunc("/target-state", s.handleTargetState)
	s.mux.HandleFunc("/api/build", s.handleAPIBuild)
	s.mux.HandleFunc("/trigger-build", s.handleTriggerBuild)
	s.mux.Handle("/ws", s.hub)
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	slog.Info("serving website", "addr", addr, "commit", version.Commit())

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// BuildRecorded implements builder.Notifier: drop the stale cached
// matrix and push the build to live clients.
func (s *Server) BuildRecorded(b model.BuildAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.cache.Invalidate(ctx, targetStateKey)
	s.hub.BuildRecorded(b)
}

// SweepFinished implements builder.Notifier.
func (s *Server) SweepFinished(nightly string, mode model.Mode) {
	s.hub.SweepFinished(nightly, mode)
}

// --- route handlers ---------------------------------------------------------

// handleTargetState returns GET /target-state: every recorded attempt
// across all modes, without stderr.
func (s *Server) handleTargetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var cached []model.BuildAttempt
	if s.cache.Get(r.Context(), targetStateKey, &cached) {
		w.Header().Set("X-Cache", "HIT")
		jsonResp(w, http.StatusOK, cached)
		return
	}

	builds, err := s.st.BuildStatus(r.Context())
	if err != nil {
		slog.Error("error loading target state", "error", err)
		jsonErr(w, http.StatusInternalServerError, "failed to load target state")
		return
	}
	if builds == nil {
		builds = []model.BuildAttempt{}
	}
	s.cache.Set(r.Context(), targetStateKey, builds)
	w.Header().Set("X-Cache", "MISS")
	jsonResp(w, http.StatusOK, builds)
}

// handleAPIBuild returns GET /api/build?nightly=&target=&mode=: one
// attempt including stderr. mode defaults to core.
func (s *Server) handleAPIBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	nightly, target, mode, err := buildParams(r)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.st.BuildStatusFull(r.Context(), nightly, target, mode)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "build not found")
		return
	}
	if err != nil {
		slog.Error("error loading build", "error", err)
		jsonErr(w, http.StatusInternalServerError, "failed to load build")
		return
	}
	jsonResp(w, http.StatusOK, b)
}

type triggerRequest struct {
	Nightly string `json:"nightly"`
}

type triggerResponse struct {
	Status  string `json:"status"`
	Nightly string `json:"nightly"`
}

// handleTriggerBuild accepts POST /trigger-build {"nightly": "..."} and
// queues a sweep of that nightly in every enabled mode.
func (s *Server) handleTriggerBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Nightly == "" {
		jsonErr(w, http.StatusBadRequest, "nightly is required")
		return
	}
	if s.builds == nil {
		jsonErr(w, http.StatusServiceUnavailable, "builder is not running")
		return
	}

	if err := s.builds.Trigger(req.Nightly); err != nil {
		if errors.Is(err, builder.ErrQueueFull) {
			jsonErr(w, http.StatusServiceUnavailable, "trigger queue is full, try again later")
			return
		}
		slog.Error("error triggering build", "nightly", req.Nightly, "error", err)
		jsonErr(w, http.StatusInternalServerError, "failed to trigger build")
		return
	}

	slog.Info("build triggered", "nightly", req.Nightly)
	jsonResp(w, http.StatusAccepted, triggerResponse{Status: "accepted", Nightly: req.Nightly})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]any{
		"status":  "ok",
		"commit":  version.Commit(),
		"clients": s.hub.Count(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.st.Ping(ctx); err != nil {
		resp["status"] = "degraded"
		resp["database"] = "unreachable"
		jsonResp(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

// buildParams extracts the locator triple shared by /build and
// /api/build. mode is optional and defaults to core.
func buildParams(r *http.Request) (nightly, target string, mode model.Mode, err error) {
	q := r.URL.Query()
	nightly = q.Get("nightly")
	target = q.Get("target")
	if nightly == "" || target == "" {
		return "", "", "", fmt.Errorf("nightly and target are required")
	}
	mode = model.ModeCore
	if raw := q.Get("mode"); raw != "" {
		mode, err = model.ParseMode(raw)
		if err != nil {
			return "", "", "", err
		}
	}
	return nightly, target, mode, nil
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

type errorResponse struct {
	Error string `json:"error"`
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
