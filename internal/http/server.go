// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"solarbooks/internal/log"
	"solarbooks/internal/obs"
	"solarbooks/internal/services"
)

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *log.Logger
	Metrics        *obs.Metrics
	Ready          ReadyCheck
}

type Server struct {
	http.Server

	ledger     *services.LedgerService
	statements *services.StatementCache
	metrics    *obs.Metrics
	logger     *log.Logger
	ready      ReadyCheck

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, statements *services.StatementCache, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.New()
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst < 1 {
		opts.RateLimitBurst = 40
	}

	s := &Server{
		ledger:      ledger,
		statements:  statements,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		ready:       opts.Ready,
		rateLimiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/entries/{id}/recur", s.handleRecur)
	mux.HandleFunc("POST /api/entries/{id}/settle", s.handleSettleEntry)
	mux.HandleFunc("POST /api/entries/{id}/reverse", s.handleReverseEntry)
	mux.HandleFunc("POST /api/entries/{id}/cancel", s.handleCancelEntry)
	mux.HandleFunc("POST /api/card-expenses", s.handleCreateCardExpenses)
	mux.HandleFunc("GET /api/invoices/{id}", s.handleInvoiceDetail)
	mux.HandleFunc("POST /api/invoices/{id}/settle", s.handleSettleInvoice)
	mux.HandleFunc("POST /api/invoices/{id}/cancel", s.handleCancelInvoice)
	mux.HandleFunc("GET /api/statement", s.handleStatement)

	// Instrument must sit directly on the mux to see the matched pattern.
	var h http.Handler = s.metrics.Instrument(mux)
	h = s.withSecurity(h)
	h = log.Middleware(s.logger, extractClientIP)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withSecurity sets security headers, logs probe-like requests and rate
// limits writes per client IP.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		clientIP := extractClientIP(r)
		logger := log.FromContext(r.Context())

		if isSuspicious(r) {
			logger.WarnContext(r.Context(), "Suspicious request", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(clientIP) {
			s.metrics.RateLimited()
			logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldMethod, r.Method)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
