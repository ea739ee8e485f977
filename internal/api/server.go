// Package api exposes the staking ledger over HTTP.
//
// Reads are plain GETs. Commands carry an auth.Intent signed by the acting
// principal; the intent's pool, principal and amount are what the ledger
// executes, so a request cannot act for anyone but the signer.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"solana-staking-ledger/internal/auth"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/ledger"
	"solana-staking-ledger/internal/observability"
	"solana-staking-ledger/internal/storage"
	"solana-staking-ledger/internal/verification"
)

// HealthChecker reports whether an upstream dependency is usable.
type HealthChecker interface {
	GetHealth(ctx context.Context) error
}

// Server routes HTTP requests to the ledger service.
type Server struct {
	ledger   *ledger.Service
	verifier *auth.Verifier
	clock    clock.Clock
	auditor  *verification.Auditor

	stream     http.Handler
	analytics  storage.EventStore
	health     HealthChecker
	adminToken string
}

// Option configures Server.
type Option func(*Server)

// WithStream serves the live event feed on /ws/events.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

// WithAnalytics serves event history and totals from an analytics store.
func WithAnalytics(store storage.EventStore) Option {
	return func(s *Server) {
		s.analytics = store
	}
}

// WithHealthCheck adds an upstream check to /health.
func WithHealthCheck(h HealthChecker) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithAdminToken enables POST /accounts/credit for bearers of token.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// NewServer creates a Server. clk must be the clock the ledger reads, so that
// intent expiry is judged on the same timeline as the operation.
func NewServer(svc *ledger.Service, verifier *auth.Verifier, clk clock.Clock, opts ...Option) *Server {
	s := &Server{
		ledger:   svc,
		verifier: verifier,
		clock:    clk,
		auditor:  verification.NewAuditor(svc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceRequests)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	if s.stream != nil {
		r.Method(http.MethodGet, "/ws/events", s.stream)
	}

	r.Route("/pools", func(r chi.Router) {
		r.Get("/", s.handleListPools)
		r.Post("/", s.handleInitializePool)
		r.Get("/address", s.handlePoolAddress)

		r.Route("/{pool}", func(r chi.Router) {
			r.Get("/", s.handleGetPool)
			r.Get("/vaults", s.handleVaults)
			r.Get("/events", s.handleEvents)
			r.Get("/positions", s.handlePositions)
			r.Get("/positions/{owner}", s.handlePosition)
			r.Get("/history", s.handleHistory)
			r.Get("/totals", s.handleTotals)
			r.Get("/audit", s.handleAudit)

			r.Post("/stake", s.handleStake)
			r.Post("/unstake", s.handleUnstake)
			r.Post("/claim", s.handleClaim)
			r.Post("/fund", s.handleFund)
		})
	})

	r.Get("/accounts/{owner}/{mint}", s.handleTokenAccount)
	r.Post("/accounts/credit", s.handleCreditAccount)

	return r
}
