package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/teemow/mahakaal/internal/logging"
)

const (
	// DefaultAddr is the default listen address of the chat API.
	DefaultAddr = ":8000"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServerConfig configures the chat API server.
type HTTPServerConfig struct {
	Addr string

	// AllowedOrigins lists CORS origins; "*" allows any. Empty disables CORS.
	AllowedOrigins []string

	// RedirectURL is the Google OAuth callback. Insecure non-loopback
	// values are logged as a warning.
	RedirectURL string
}

// HTTPServer serves the chat API: the NDJSON chat stream, Google OAuth,
// chat sessions and health probes.
type HTTPServer struct {
	sc         *ServerContext
	health     *HealthChecker
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer wires all routes on a new mux.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	logger := logging.WithOperation(sc.Logger(), "http")
	if config.RedirectURL != "" {
		if err := validateRedirectURL(config.RedirectURL); err != nil {
			logger.Warn("insecure OAuth redirect URL", logging.Err(err))
		}
	}

	s := &HTTPServer{
		sc:     sc,
		health: NewHealthChecker(sc),
		logger: logger,
	}

	chat := &chatHandlers{sc: sc, logger: logging.WithOperation(sc.Logger(), "chat")}
	auth := &authHandlers{sc: sc, states: newOAuthStates(), logger: logging.WithOperation(sc.Logger(), "auth")}
	sessions := &sessionHandlers{sc: sc}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", chat.root)
	mux.HandleFunc("POST /chat", chat.chat)

	mux.HandleFunc("GET /auth/login", auth.login)
	mux.HandleFunc("GET /auth/callback", auth.callback)
	mux.HandleFunc("GET /auth/status", auth.status)

	mux.HandleFunc("POST /sessions", sessions.create)
	mux.HandleFunc("GET /sessions", sessions.list)
	mux.HandleFunc("GET /sessions/{id}", sessions.get)
	mux.HandleFunc("PATCH /sessions/{id}", sessions.rename)
	mux.HandleFunc("DELETE /sessions/{id}", sessions.delete)

	s.health.RegisterHealthEndpoints(mux)

	var handler http.Handler = mux
	if len(config.AllowedOrigins) > 0 {
		handler = corsMiddleware(handler, config.AllowedOrigins)
	}
	s.handler = metricsMiddleware(handler, sc.Metrics(), logger)

	// No write timeout: chat streams last as long as the agent runs.
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the health checker backing the probe endpoints.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the listen address.
func (s *HTTPServer) Addr() string {
	return s.httpServer.Addr
}

// Start blocks serving requests until Shutdown is called, then returns
// http.ErrServerClosed.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server unready, waits for in-flight requests
// (including open chat streams) until ctx expires, then releases the
// server context.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down HTTP server")

	err := s.httpServer.Shutdown(ctx)
	if scErr := s.sc.Shutdown(); scErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close server context: %w", scErr))
	}
	return err
}

// validateRedirectURL requires https unless the host is a loopback address.
func validateRedirectURL(redirect string) error {
	u, err := url.Parse(redirect)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("redirect URL %s uses plain HTTP on a non-loopback host", redirect)
	default:
		return fmt.Errorf("invalid URL scheme %q: must be http (loopback only) or https", u.Scheme)
	}
}
