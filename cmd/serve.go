package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mahakaal/internal/config"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/logging"
	"github.com/teemow/mahakaal/internal/server"
	"github.com/teemow/mahakaal/internal/session"
)

func newServeCmd() *cobra.Command {
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		Long: `Start the HTTP backend of the scheduling assistant.

Endpoints:
  GET  /                  Liveness banner
  POST /chat              Run the assistant; streams NDJSON events
  GET  /auth/login        Google Calendar consent URL
  GET  /auth/callback     OAuth redirect target
  GET  /auth/status       Whether a calendar token is stored
  /sessions[/{id}]        Stored chat sessions
  /healthz, /readyz       Kubernetes probes

Prometheus metrics are served on a separate port (--metrics-addr) unless
--no-metrics is set or telemetry.metrics_exporter is not "prometheus".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(cmd)
			if err != nil {
				return err
			}
			return runServe(cfg, logger, !noMetrics)
		},
	}

	cmd.Flags().String("addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "Prometheus metrics listen address")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Do not start the metrics server")
	cmd.Flags().String("allowed-origins", "*", "Comma separated CORS origins")
	cmd.Flags().String("frontend-url", config.DefaultFrontendURL, "Where the OAuth callback redirects the browser")
	cmd.Flags().String("db-path", session.DefaultPath, "Chat session database")
	addModelFlags(cmd)

	return cmd
}

func runServe(cfg *config.Config, logger *slog.Logger, metricsEnabled bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	a, err := newApp(ctx, cfg, logger, provider)
	if err != nil {
		return err
	}
	ag, err := a.newAgent()
	if err != nil {
		return err
	}

	store, err := session.Open(ctx, cfg.Session.DBPath, session.WithLogger(logger))
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		Agent:       ag,
		Sessions:    store,
		Metrics:     a.metrics,
		Logger:      logger,
		FrontendURL: cfg.Server.FrontendURL,
	}
	// Assigned only when set so a nil *google.Authenticator never becomes a
	// non-nil interface.
	if a.auth != nil {
		deps.Auth = a.auth
	}

	sc, err := server.NewServerContext(ctx, deps)
	if err != nil {
		_ = store.Close()
		return err
	}
	httpServer, err := server.NewHTTPServer(sc, server.HTTPServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RedirectURL:    cfg.Google.RedirectURL,
	})
	if err != nil {
		_ = sc.Shutdown()
		return err
	}

	metricsServer, err := newMetricsServer(cfg, provider, logger, metricsEnabled)
	if err != nil {
		_ = sc.Shutdown()
		return err
	}

	serverDone := make(chan error, 2)
	go func() {
		serverDone <- httpServer.Start()
	}()
	if metricsServer != nil {
		go func() {
			serverDone <- metricsServer.Start()
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server stopped with error: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
	defer stop()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("error shutting down HTTP server: %w", err))
	}

	logger.Info("HTTP server gracefully stopped")
	return runErr
}

func newMetricsServer(cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger, enabled bool) (*server.MetricsServer, error) {
	if !enabled || !provider.Enabled() || !provider.PrometheusEnabled() {
		return nil, nil
	}
	srv, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Server.MetricsAddr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	return srv, nil
}
