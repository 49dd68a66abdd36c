// Package api provides the HTTP API for observing a live run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/segregation/internal/collector"
	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/engine"
	"github.com/talgya/segregation/internal/entropy"
	"github.com/talgya/segregation/internal/persistence"
)

const maxStreamConns = 16

// Options configures a Server.
type Options struct {
	Port          int
	AdminKey      string // Bearer token for POST endpoints. Empty = POST disabled.
	Interval      time.Duration
	Speed         float64
	Store         *persistence.DB // Optional; records every run when set
	SnapshotEvery int             // Store a grid snapshot every N steps (0 = final only)
	StreamLimit   int             // Stream connection attempts per IP per minute
	CORSOrigins   []string        // Browser origins allowed to call the API; "*" for any
}

// Server steps one model on a paced engine and serves its state.
type Server struct {
	Port     int
	AdminKey string
	Eng      *engine.Engine

	store         *persistence.DB
	snapshotEvery int
	hub           *Hub
	series        *collector.Series
	streamLimiter *RateLimiter
	streamConns   int32
	corsOrigins   []string

	// mu guards the model and run bookkeeping. The engine steps under it
	// and handlers read under it.
	mu     sync.Mutex
	cfg    config.ModelConfig
	model  *engine.Model
	runID  string
	closed bool // current run already finished in the store
}

// NewServer builds the first model from cfg and seed.
func NewServer(cfg config.ModelConfig, seed uint64, opts Options) (*Server, error) {
	if opts.StreamLimit <= 0 {
		opts.StreamLimit = 30
	}
	s := &Server{
		Port:          opts.Port,
		AdminKey:      opts.AdminKey,
		Eng:           engine.NewEngine(opts.Interval),
		store:         opts.Store,
		snapshotEvery: opts.SnapshotEvery,
		hub:           NewHub(),
		series:        collector.NewSeries(),
		streamLimiter: NewRateLimiter(opts.StreamLimit, time.Minute),
		corsOrigins:   opts.CORSOrigins,
		cfg:           cfg,
	}
	if opts.Speed > 0 {
		s.Eng.SetSpeed(opts.Speed)
	}
	s.Eng.Step = s.Step

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(seed); err != nil {
		return nil, err
	}
	return s, nil
}

// resetLocked replaces the model with a fresh one. A seed of 0 draws a new
// seed before the run is stored. Caller holds mu.
func (s *Server) resetLocked(seed uint64) error {
	if s.model != nil {
		s.finishLocked()
	}
	seed = entropy.Resolve(seed)

	var runID string
	sinks := collector.Multi{s.series, s.hub}
	if s.store != nil {
		id, err := s.store.CreateRun(s.cfg, seed)
		if err != nil {
			return err
		}
		runID = id
		sinks = append(sinks, s.store.Recorder(id))
	}

	s.series.Reset()
	m, err := engine.New(s.cfg, seed, engine.WithSink(sinks))
	if err != nil {
		return err
	}
	s.model = m
	s.runID = runID
	s.closed = false

	slog.Info("model ready", "preset", s.cfg.Preset, "seed", m.Seed, "run_id", runID, "agents", m.Schedule.Count())
	if !m.Running {
		s.finishLocked()
	}
	return nil
}

// Step advances the model by one step. It is the engine's step function
// and keeps the engine alive after the model halts so a reset can resume.
func (s *Server) Step(tick uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.model.Running {
		return true
	}
	running, err := s.model.Step()
	if err != nil {
		slog.Error("step failed", "tick", tick, "error", err)
	}

	step := s.model.Steps()
	if s.store != nil && s.snapshotEvery > 0 && step%uint64(s.snapshotEvery) == 0 {
		if err := s.store.SaveSnapshot(s.runID, step, s.model.Grid); err != nil {
			slog.Error("snapshot failed", "run_id", s.runID, "step", step, "error", err)
		}
	}
	if !running {
		s.finishLocked()
	}
	return true
}

// finishLocked stores the final snapshot and closes the current run once.
// Caller holds mu.
func (s *Server) finishLocked() {
	if s.store == nil || s.closed {
		return
	}
	s.closed = true
	step := s.model.Steps()
	if err := s.store.SaveSnapshot(s.runID, step, s.model.Grid); err != nil {
		slog.Error("final snapshot failed", "run_id", s.runID, "error", err)
	}
	if err := s.store.FinishRun(s.runID, step, !s.model.Running); err != nil {
		slog.Error("finish run failed", "run_id", s.runID, "error", err)
	}
}

// Close finishes the current run in the store.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(s.streamLimiter, s.handleStream))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

	return withCORS(s.corsOrigins, mux)
}

// ListenAndServe serves the API and runs the engine until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	go s.Eng.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		s.Eng.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// withCORS answers preflight requests and echoes the Origin header back
// when it is listed. "*" admits any origin.
func withCORS(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (allowed[origin] || allowed["*"]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized reports whether r carries the admin key as a bearer token.
func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly guards the mutating (POST) side of an endpoint. Reads pass.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method != http.MethodPost:
		case s.AdminKey == "":
			http.Error(w, "admin control disabled: set SCHELLING_ADMIN_KEY", http.StatusForbidden)
			return
		case !s.authorized(r):
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := s.model
	status := map[string]any{
		"preset":      s.cfg.Preset,
		"seed":        strconv.FormatUint(m.Seed, 10),
		"run_id":      s.runID,
		"step":        m.Steps(),
		"running":     m.Running,
		"agents":      m.Schedule.Count(),
		"majority":    m.Census[0],
		"minority":    m.Census[1],
		"width":       m.Grid.Width,
		"height":      m.Grid.Height,
		"termination": m.Policies().Termination.String(),
		"metrics":     m.Metrics,
	}
	s.mu.Unlock()

	status["speed"] = s.Eng.Speed()
	status["subscribers"] = s.hub.Subscribers()
	writeJSON(w, status)
}

// handleMetrics returns the per-step series, optionally from ?since=N on.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	records := s.series.Records()
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be a step number", http.StatusBadRequest)
			return
		}
		i := 0
		for i < len(records) && records[i].Step < since {
			i++
		}
		records = records[i:]
	}
	writeJSON(w, map[string]any{
		"columns": engine.MetricNames,
		"records": records,
	})
}

// handleGrid returns the grid as rows of digits: 0 empty, 1 majority,
// 2 minority.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g := s.model.Grid
	layout := g.Layout()
	step := s.model.Steps()
	s.mu.Unlock()

	rows := make([]string, g.Height)
	buf := make([]byte, g.Width)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			buf[x] = '0' + layout[y*g.Width+x]
		}
		rows[y] = string(buf)
	}
	writeJSON(w, map[string]any{
		"step":   step,
		"width":  g.Width,
		"height": g.Height,
		"torus":  g.Torus,
		"rows":   rows,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "no run store configured", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "list runs failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleReset starts a fresh model. The body may carry {"seed": "123"};
// without it a new seed is drawn.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Seed uint64 `json:"seed,string"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	err := s.resetLocked(req.Seed)
	var seed uint64
	if err == nil {
		seed = s.model.Seed
	}
	runID := s.runID
	s.mu.Unlock()

	if err != nil {
		slog.Error("reset failed", "error", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"seed": strconv.FormatUint(seed, 10), "run_id": runID})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and sends one JSON record per step.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	defer atomic.AddInt32(&s.streamConns, -1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	// Reader: the client sends nothing meaningful; a read error means it left.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeJSON sends v as indented JSON. Headers are already out when
// encoding fails, so the error is only logged.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}
