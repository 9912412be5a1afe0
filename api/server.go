// Package api serves the read-only monitoring surface: REST snapshots of
// rollup, health and sequencer state, and a WebSocket stream of live
// events. Every REST handler is a pure snapshot read.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/broadcast"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/types"
)

const banner = "Rollup Proof Status API - Track L2 rollup commitments on Ethereum L1"

// rollupEvents lists the event categories each rollup can emit, for the
// /rollups listing.
var rollupEvents = map[string][]string{
	"arbitrum": {"BatchDelivered", "ProofSubmitted", "ProofVerified"},
	"base":     {"DisputeGameCreated", "WithdrawalProven"},
	"optimism": {"DisputeGameCreated", "WithdrawalProven"},
	"starknet": {"StateUpdate", "MessageLog"},
	"zksync":   {"BlockCommit", "BlocksVerification", "BlockExecution"},
}

type Server struct {
	log         log.Logger
	store       *store.Store
	health      *health.Monitor
	broadcaster *broadcast.Broadcaster

	handler  http.Handler
	srv      *http.Server
	listener net.Listener
	closed   chan struct{}
}

func NewServer(logger log.Logger, st *store.Store, hm *health.Monitor, b *broadcast.Broadcaster) *Server {
	s := &Server{
		log:         logger,
		store:       st,
		health:      hm,
		broadcaster: b,
		closed:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleServiceHealth)
	mux.HandleFunc("GET /rollups", s.handleListRollups)
	mux.HandleFunc("GET /rollups/health", s.handleAllHealth)
	mux.HandleFunc("GET /rollups/sequencer", s.handleAllSequencers)
	mux.HandleFunc("GET /rollups/stream", s.handleStream)
	mux.HandleFunc("GET /rollups/{rollup}/status", s.handleStatus)
	mux.HandleFunc("GET /rollups/{rollup}/health", s.handleHealth)
	mux.HandleFunc("GET /rollups/{rollup}/sequencer", s.handleSequencer)
	s.handler = corsMiddleware(mux)
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds addr and serves in the background until Stop.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info("API server starting", "addr", listener.Addr())
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server failed", "err", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains the server. WebSocket clients are signalled to disconnect;
// Shutdown alone would leave the upgraded connections hanging.
func (s *Server) Stop(ctx context.Context) error {
	close(s.closed)
	if s.srv == nil {
		return nil
	}
	s.log.Info("Shutting down API server")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(banner))
}

func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "ok",
		"service": "rollupmon",
	})
}

func (s *Server) handleListRollups(w http.ResponseWriter, r *http.Request) {
	listing := make([]map[string]any, 0, len(types.KnownRollups))
	for _, rollup := range types.KnownRollups {
		listing = append(listing, map[string]any{
			"name":               rollup,
			"status_endpoint":    "/rollups/" + rollup + "/status",
			"health_endpoint":    "/rollups/" + rollup + "/health",
			"sequencer_endpoint": "/rollups/" + rollup + "/sequencer",
			"events":             rollupEvents[rollup],
		})
	}
	writeJSON(w, map[string]any{"rollups": listing})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rollup, ok := s.rollupParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.store.GetStatus(rollup))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rollup, ok := s.rollupParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.health.CheckHealth(rollup))
}

func (s *Server) handleSequencer(w http.ResponseWriter, r *http.Request) {
	rollup, ok := s.rollupParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.store.GetSequencerStatus(rollup))
}

func (s *Server) handleAllHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"rollups": s.health.EvaluateAll()})
}

func (s *Server) handleAllSequencers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sequencer": s.store.GetAllSequencerStatuses()})
}

func (s *Server) rollupParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	rollup := r.PathValue("rollup")
	if !slices.Contains(types.KnownRollups, rollup) {
		http.NotFound(w, r)
		return "", false
	}
	return rollup, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// corsMiddleware allows cross-origin reads; the API carries no state
// worth protecting and dashboards are served from other origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
