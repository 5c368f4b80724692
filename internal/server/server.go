// Package server exposes load-test runs over HTTP.
//
// Endpoints:
//
//	POST /stress-test            start a stress run (body: TestConfig JSON)
//	POST /performance-test       start a performance run
//	GET  /test-results           list all runs, oldest first
//	GET  /test-results/{id}      one run
//	GET  /test-results/{id}/live progress of a run in progress
//	GET  /resource-stats/{id}    resource samples and summary of one run
//	GET  /metrics                Prometheus metrics
//	GET  /healthz                liveness
//
// Runs execute in the background with a context owned by the server, so a
// run outlives the request that started it and is finalized on Shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/store"
	"github.com/Otavio-CB/non-functional-tester/internal/telemetry"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8000"

// maxBodyBytes bounds the size of a run submission.
const maxBodyBytes = 1 << 20

// Config configures a Server.
type Config struct {
	Addr string

	// RunOptions is the template for every run. Publisher and Observer are
	// set by the server.
	RunOptions dispatch.Options

	ReadHeaderTimeout time.Duration
}

// Server is the HTTP front end of the load-test engine.
type Server struct {
	cfg       Config
	store     *store.MemoryStore
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *telemetry.Collector
	router    *mux.Router
	http      *http.Server

	runCtx     context.Context
	cancelRuns context.CancelFunc

	mu     sync.Mutex
	active map[string]dispatch.Dispatcher
	wg     sync.WaitGroup
}

// New creates a server that publishes runs to st.
func New(cfg Config, st *store.MemoryStore, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:        cfg,
		store:      st,
		logger:     logger,
		registry:   registry,
		collector:  telemetry.NewCollector(registry),
		runCtx:     runCtx,
		cancelRuns: cancel,
		active:     make(map[string]dispatch.Dispatcher),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stress-test", s.handleStartRun(loadtest.KindStress)).Methods(http.MethodPost)
	r.HandleFunc("/performance-test", s.handleStartRun(loadtest.KindPerformance)).Methods(http.MethodPost)
	r.HandleFunc("/test-results", s.handleListResults).Methods(http.MethodGet)
	r.HandleFunc("/test-results/{id}", s.handleGetResult).Methods(http.MethodGet)
	r.HandleFunc("/test-results/{id}/live", s.handleLive).Methods(http.MethodGet)
	r.HandleFunc("/resource-stats/{id}", s.handleResourceStats).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on %s: %w", s.cfg.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, stops every active run from starting
// new batches and waits for them to finalize or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.http.Shutdown(ctx)
	s.cancelRuns()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("runs still active at shutdown: %w", ctx.Err())
	}

	if httpErr != nil {
		return fmt.Errorf("failed to shut down http server: %w", httpErr)
	}
	return nil
}

// ActiveRuns returns the number of runs in progress.
func (s *Server) ActiveRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Server) handleStartRun(kind loadtest.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg loadtest.TestConfig
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		loadtest.ApplyDefaults(&cfg)

		opts := s.cfg.RunOptions
		opts.Publisher = s.store
		opts.Observer = s.collector
		opts.Logger = s.logger

		d, rec, err := dispatch.StartRun(s.runCtx, kind, cfg, opts)
		if err != nil {
			var verrs *loadtest.ValidationErrors
			if errors.As(err, &verrs) {
				writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
					Error:   "invalid test configuration",
					Details: verrs.Errors,
				})
				return
			}
			s.logger.Error("failed to start run", zap.String("kind", string(kind)), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.track(rec.TestID, d)
		writeJSON(w, http.StatusOK, rec)
	}
}

// track keeps d in the active set until it completes.
func (s *Server) track(id string, d dispatch.Dispatcher) {
	s.mu.Lock()
	s.active[id] = d
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		d.Wait()

		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}()
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResourceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ResourceStats(mux.Vars(r)["id"])
	if err != nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// LiveResponse is the body of GET /test-results/{id}/live.
type LiveResponse struct {
	TestID string            `json:"test_id"`
	Stats  dispatch.Stats    `json:"stats"`
	Live   metrics.LiveStats `json:"live"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	d, ok := s.active[id]
	s.mu.Unlock()

	if !ok {
		if _, err := s.store.Get(id); err != nil {
			writeNotFound(w)
			return
		}
		writeError(w, http.StatusConflict, "Test not running")
		return
	}

	writeJSON(w, http.StatusOK, LiveResponse{TestID: id, Stats: d.Stats(), Live: d.Live()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": s.ActiveRuns(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Error   string                      `json:"error"`
	Details []*loadtest.ValidationError `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Test not found")
}
