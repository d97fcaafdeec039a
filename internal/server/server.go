// Package server exposes the classification pipeline over HTTP. The
// API is synchronous: a classify request returns the full labeled
// batch, persisting it as a run when a store is configured.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/pipeline"
	"github.com/adscope/suggest-triage/internal/store"
)

// maxBatchSize bounds one classify request. Suggestion scrapes arrive
// in pages well below this.
const maxBatchSize = 5000

// Server handles the HTTP API.
type Server struct {
	pipe  *pipeline.Pipeline
	store store.Store
	port  int
}

// New builds a server. The store may be nil, in which case runs are
// classified but not persisted.
func New(pipe *pipeline.Pipeline, st store.Store, port int) *Server {
	return &Server{pipe: pipe, store: st, port: port}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type classifyRequest struct {
	Seed       string   `json:"seed"`
	Country    string   `json:"country"`
	Candidates []string `json:"candidates"`
	// Persist stores the batch as a run when a store is configured.
	Persist bool `json:"persist,omitempty"`
}

type classifyResponse struct {
	RunID    string            `json:"run_id,omitempty"`
	Outcomes []model.Outcome   `json:"outcomes"`
	Stats    *model.BatchStats `json:"stats"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Seed == "" {
		writeError(w, http.StatusBadRequest, "seed is required")
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "candidates are required")
		return
	}
	if len(req.Candidates) > maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d candidates", maxBatchSize))
		return
	}

	outcomes, stats, err := s.pipe.Classify(r.Context(), req.Seed, req.Country, req.Candidates)
	if err != nil {
		zap.L().Error("server: classify failed", zap.String("seed", req.Seed), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	resp := classifyResponse{Outcomes: outcomes, Stats: stats}
	if req.Persist && s.store != nil {
		runID, err := s.persistRun(r.Context(), req, outcomes, stats)
		if err != nil {
			zap.L().Error("server: persist run failed", zap.String("seed", req.Seed), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "run persistence failed")
			return
		}
		resp.RunID = runID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) persistRun(ctx context.Context, req classifyRequest, outcomes []model.Outcome, stats *model.BatchStats) (string, error) {
	run, err := s.store.CreateRun(ctx, req.Seed, "", req.Country)
	if err != nil {
		return "", err
	}
	if err := s.store.InsertOutcomes(ctx, run.ID, outcomes); err != nil {
		if failErr := s.store.FailRun(ctx, run.ID); failErr != nil {
			zap.L().Warn("server: mark run failed", zap.String("run_id", run.ID), zap.Error(failErr))
		}
		return "", err
	}
	if err := s.store.CompleteRun(ctx, run.ID, stats); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Seed:   r.URL.Query().Get("seed"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	runID := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	outcomes, err := s.store.ListOutcomes(r.Context(), runID)
	if err != nil {
		zap.L().Error("server: list outcomes failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing outcomes failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run": run, "outcomes": outcomes})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
