// Package http serves the card totals API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "snstotal/internal/log"
	"snstotal/internal/middleware/ratelimit"
	"snstotal/internal/middleware/security"
	"snstotal/internal/middleware/trace"
	"snstotal/internal/pipeline"
)

// Runner runs one processing pass over a delivery page.
type Runner interface {
	Run(ctx context.Context, source pipeline.Source) (pipeline.Report, error)
}

// Server wraps http.Server with the totals API and its middleware.
type Server struct {
	http.Server
	runner       Runner
	limiter      *ratelimit.Limiter
	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server. Only the
// totals endpoint is rate limited.
func NewServer(addr string, runner Runner, limiter *ratelimit.Limiter, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	s := &Server{
		runner:  runner,
		limiter: limiter,
		logger:  logger.WithComponent(applog.ComponentHTTP),
	}

	clientIP := security.NewClientIP()
	tracer := trace.NewMiddleware(logger, clientIP.Extract)
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, clientIP.Extract(r),
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/api/totals", limiter.Middleware(clientIP.Extract, onLimit)(http.HandlerFunc(s.handleTotals)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(security.Headers(security.DefaultHeadersConfig())(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "processor not configured", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
