// Package api is the engine's trimmed HTTP surface: liveness/readiness/
// status reads plus a server-sent-events broadcaster for new
// opportunities and trade resolutions (spec §6 "the HTTP/SSE surface...
// is out of scope beyond its interface"). Grounded on the teacher's
// `internal/api/server.go` health/status handlers and `writeJSON`
// helper; its 2400-line grant-reporting dashboard (CSV exports, stage
// reports, coach/sizing/insights endpoints) is a Polymarket-builder-grant
// artifact specific to the teacher's own use case and is not carried
// over — nothing in SPEC_FULL.md calls for grant/CSV reporting.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"
)

// EngineState exposes the running engine's state for the API layer.
type EngineState interface {
	Running() bool
	Bankroll() float64
	Status() string // "ACTIVE" or "BUSTED"
	MonitoredMarkets() int
	OddsQuotaRemaining() int
}

// Server is the engine's lightweight HTTP + SSE surface.
type Server struct {
	httpServer *http.Server
	state      EngineState
	startedAt  time.Time
	broker     *Broker
}

func NewServer(addr string, state EngineState, broker *Broker) *Server {
	s := &Server{state: state, startedAt: time.Now(), broker: broker}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.broker.ServeHTTP)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("api server listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("api server: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /api/health — liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/status — overall engine status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"running":            s.state.Running(),
		"status":             s.state.Status(),
		"bankroll":           s.state.Bankroll(),
		"monitored_markets":  s.state.MonitoredMarkets(),
		"odds_quota_remain":  s.state.OddsQuotaRemaining(),
		"uptime_s":           time.Since(s.startedAt).Seconds(),
	})
}
