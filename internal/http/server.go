// Package http exposes the JSON API: session auth plus per-user ledger
// item CRUD and summaries.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/services"
	"kakeibo/internal/session"
)

type Server struct {
	http.Server

	ledger   *services.LedgerService
	auth     *auth.Service
	sessions session.Store

	rateLimiter  *rateLimiter
	cookieTTL    time.Duration
	secureCookie bool

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. cookieTTL bounds both the cookie and the sessions behind it.
func NewServer(addr string, ledger *services.LedgerService, authSvc *auth.Service, sessions session.Store, cookieTTL time.Duration, secureCookie bool) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:       ledger,
		auth:         authSvc,
		sessions:     sessions,
		rateLimiter:  newRateLimiter(),
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/auth/register", s.withRequestLog(s.handleRegister))
	mux.HandleFunc("/api/auth/login", s.withRequestLog(s.handleLogin))
	mux.HandleFunc("/api/auth/logout", s.withRequestLog(s.handleLogout))
	mux.HandleFunc("/api/auth/session", s.withRequestLog(s.handleSession))

	mux.HandleFunc("/api/items", s.withRequestLog(s.requireAuth(s.handleItems)))
	mux.HandleFunc("/api/items/summary", s.withRequestLog(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("/api/items/", s.withRequestLog(s.requireAuth(s.handleItemByID)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
