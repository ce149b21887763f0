package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/mahakaal/internal/agent"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/session"
)

// Authenticator is the Google OAuth flow as seen by the HTTP handlers.
type Authenticator interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) error
	Status() bool
}

// Dependencies are the collaborators a ServerContext serves requests with.
// Sessions and Auth may be nil; the matching endpoints then answer 503.
type Dependencies struct {
	Agent       *agent.Agent
	Sessions    *session.Store
	Auth        Authenticator
	Metrics     *instrumentation.Metrics
	Logger      *slog.Logger
	FrontendURL string
}

// ServerContext holds the long-lived state shared by all HTTP handlers
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Dependencies
	mu     sync.RWMutex
	closed bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, deps Dependencies) (*ServerContext, error) {
	if deps.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FrontendURL == "" {
		deps.FrontendURL = "/"
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		deps:   deps,
	}, nil
}

// Context returns the server context. It is canceled by Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Agent returns the orchestration loop.
func (sc *ServerContext) Agent() *agent.Agent {
	return sc.deps.Agent
}

// Sessions returns the session store, or nil when persistence is disabled.
func (sc *ServerContext) Sessions() *session.Store {
	return sc.deps.Sessions
}

// Auth returns the OAuth flow, or nil when Google auth is not configured.
func (sc *ServerContext) Auth() Authenticator {
	return sc.deps.Auth
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.deps.Metrics
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.deps.Logger
}

// FrontendURL is where the OAuth callback redirects the browser.
func (sc *ServerContext) FrontendURL() string {
	return sc.deps.FrontendURL
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.closed
}

// Shutdown cancels the server context and closes the session store.
// Calling it more than once is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil
	}
	sc.closed = true
	sc.cancel()

	if sc.deps.Sessions != nil {
		return sc.deps.Sessions.Close()
	}
	return nil
}
