// Package server implements the optional HTTP trigger surface: an
// authenticated endpoint that runs one evaluation per request, plus a
// read-only view of the cooldown state.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/engine"
	"github.com/fragwatch/fragwatch/internal/timer"
)

// Server holds the dependencies and runtime state of the HTTP trigger.
type Server struct {
	// engine runs one evaluation per trigger request.
	engine *engine.Engine

	// timerStore backs the read-only /api/timer view.
	timerStore timer.Store

	// authToken is the bearer token required on the API endpoints.
	authToken string

	// hardLimitCount and hardLimitWin bound requests per client IP.
	hardLimitCount int
	hardLimitWin   time.Duration

	// trustProxy enables X-Forwarded-For handling behind a reverse proxy.
	trustProxy bool

	// mu serializes evaluations so one process never overlaps itself.
	// Separate processes still race on the timer store; schedule triggers
	// non-overlapping instead of relying on the engine for exclusion.
	mu sync.Mutex
}

// New creates a Server from the engine, the timer store, and the HTTP
// trigger configuration.
func New(eng *engine.Engine, store timer.Store, cfg config.HTTP) *Server {
	return &Server{
		engine:         eng,
		timerStore:     store,
		authToken:      cfg.AuthToken,
		hardLimitCount: cfg.RateCount,
		hardLimitWin:   cfg.RateWin,
		trustProxy:     cfg.TrustProxy,
	}
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/check", s.RateLimitMiddleware(AuthMiddleware(s.authToken, http.HandlerFunc(s.handleCheck))))
	mux.Handle("GET /api/timer", AuthMiddleware(s.authToken, http.HandlerFunc(s.handleTimer)))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealth))

	return s.LoggingMiddleware(mux)
}
