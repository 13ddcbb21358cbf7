// Package api provides REST access to scenarios, runs, and sweeps.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"airline_recovery/internal/export"
	"airline_recovery/internal/scenario"
	"airline_recovery/internal/sim"
	"airline_recovery/internal/storage"
)

// Config holds configuration for the API server.
type Config struct {
	Port        int      `yaml:"port"`
	AuthEnabled bool     `yaml:"auth_enabled"`
	APIKeys     []string `yaml:"api_keys"`
	CacheSize   int      `yaml:"cache_size"` // retained run results, default 256
}

// Server runs simulations on demand over HTTP. Completed results are
// kept in an LRU cache keyed by run id; when the result stores are
// configured, runs are written through to Postgres and sweeps to
// ClickHouse.
type Server struct {
	store       *scenario.Store
	db          *storage.DB // optional
	log         *slog.Logger
	port        int
	authEnabled bool
	apiKeys     map[string]bool
	runs        *lru.Cache[string, *sim.Result]
	runSeq      atomic.Uint64
}

// NewServer creates an API server over the given scenario store. db
// may be nil to disable write-through persistence.
func NewServer(store *scenario.Store, db *storage.DB, log *slog.Logger, cfg Config) (*Server, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	runs, err := lru.New[string, *sim.Result](size)
	if err != nil {
		return nil, fmt.Errorf("run cache: %w", err)
	}

	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		store:       store,
		db:          db,
		log:         log,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		runs:        runs,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	s.log.Info("api listening", slog.String("addr", addr), slog.Bool("auth", s.authEnabled))
	return http.ListenAndServe(addr, s.Router())
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/scenarios", s.handleListScenarios)
		r.Get("/scenarios/{scenario_id}/runs", s.handleRunHistory)
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs/{run_id}", s.handleGetRun)
		r.Get("/runs/{run_id}/flights.csv", s.handleExportFlights)
		r.Post("/sweeps", s.handleSweep)
		r.Get("/sweeps/{sweep_id}/curve", s.handleSweepCurve)
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list scenarios", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	if list == nil {
		list = []scenario.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil || s.db.PG == nil {
		writeError(w, http.StatusServiceUnavailable, "run persistence is not configured")
		return
	}
	sid := chi.URLParam(r, "scenario_id")
	summaries, err := s.db.PG.LoadRunSummaries(r.Context(), sid)
	if err != nil {
		s.log.Error("load run history", slog.String("sid", sid), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "failed to load run history")
		return
	}
	if summaries == nil {
		summaries = []storage.RunSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// RunRequest asks for a single simulation run.
type RunRequest struct {
	ScenarioID  string `json:"scenario_id"`
	MaxDelayMin *int   `json:"max_delay_min,omitempty"` // overrides the stored setting
}

// RunResponse wraps a completed run with its handle.
type RunResponse struct {
	RunID  string      `json:"run_id"`
	Result *sim.Result `json:"result"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScenarioID == "" {
		writeError(w, http.StatusBadRequest, "scenario_id is required")
		return
	}

	sc, err := s.store.Load(r.Context(), req.ScenarioID)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		s.log.Error("load scenario", slog.String("sid", req.ScenarioID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}

	var opts []sim.Option
	if req.MaxDelayMin != nil {
		opts = append(opts, sim.WithMaxDelay(time.Duration(*req.MaxDelayMin)*time.Minute))
	}
	eng, err := sim.New(sc, opts...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := eng.Run()
	if err != nil {
		s.log.Error("run failed", slog.String("sid", req.ScenarioID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "simulation failed")
		return
	}

	runID := s.nextRunID(req.ScenarioID)
	s.runs.Add(runID, res)
	if s.db != nil && s.db.PG != nil {
		if err := s.db.PG.SaveRun(r.Context(), runID, res); err != nil {
			s.log.Error("persist run", slog.String("run", runID), slog.Any("err", err))
		}
	}

	s.log.Info("run complete", slog.String("run", runID),
		slog.Int("flights", res.Metrics.FlightsTotal),
		slog.Int("cancelled", res.Metrics.Cancelled))
	writeJSON(w, http.StatusCreated, RunResponse{RunID: runID, Result: res})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	res, ok := s.runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{RunID: runID, Result: res})
}

func (s *Server) handleExportFlights(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	res, ok := s.runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-flights.csv", runID))
	if err := export.WriteFlights(res, w); err != nil {
		s.log.Error("export flights", slog.String("run", runID), slog.Any("err", err))
	}
}

// SweepRequest asks for one run per max-delay setting.
type SweepRequest struct {
	ScenarioID   string `json:"scenario_id"`
	MaxDelaysMin []int  `json:"max_delays_min"`
}

// SweepResponse carries the per-setting outcomes, ordered as requested.
type SweepResponse struct {
	SweepID    string        `json:"sweep_id"`
	ScenarioID string        `json:"scenario_id"`
	Runs       []RunResponse `json:"runs"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScenarioID == "" || len(req.MaxDelaysMin) == 0 {
		writeError(w, http.StatusBadRequest, "scenario_id and max_delays_min are required")
		return
	}

	sc, err := s.store.Load(r.Context(), req.ScenarioID)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		s.log.Error("load scenario", slog.String("sid", req.ScenarioID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}

	results := make([]*sim.Result, len(req.MaxDelaysMin))
	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, maxDelay := range req.MaxDelaysMin {
		i, maxDelay := i, maxDelay
		g.Go(func() error {
			eng, err := sim.New(sc, sim.WithMaxDelay(time.Duration(maxDelay)*time.Minute))
			if err != nil {
				return err
			}
			res, err := eng.Run()
			if err != nil {
				return fmt.Errorf("max_delay=%d: %w", maxDelay, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("sweep failed", slog.String("sid", req.ScenarioID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	resp := SweepResponse{SweepID: s.nextRunID(req.ScenarioID), ScenarioID: req.ScenarioID}
	for _, res := range results {
		runID := s.nextRunID(req.ScenarioID)
		s.runs.Add(runID, res)
		resp.Runs = append(resp.Runs, RunResponse{RunID: runID, Result: res})
	}
	if s.db != nil && s.db.CH != nil {
		if err := s.db.CH.SaveSweep(r.Context(), resp.SweepID, results); err != nil {
			s.log.Error("persist sweep", slog.String("sweep", resp.SweepID), slog.Any("err", err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSweepCurve(w http.ResponseWriter, r *http.Request) {
	if s.db == nil || s.db.CH == nil {
		writeError(w, http.StatusServiceUnavailable, "sweep analytics is not configured")
		return
	}
	sweepID := chi.URLParam(r, "sweep_id")
	points, err := s.db.CH.CancellationCurve(r.Context(), sweepID)
	if err != nil {
		s.log.Error("load sweep curve", slog.String("sweep", sweepID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "failed to load sweep curve")
		return
	}
	if points == nil {
		points = []storage.SweepPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) nextRunID(sid string) string {
	return fmt.Sprintf("%s-%d-%d", sid, time.Now().Unix(), s.runSeq.Add(1))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
