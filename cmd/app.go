package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/mahakaal/internal/agent"
	"github.com/teemow/mahakaal/internal/calendar"
	"github.com/teemow/mahakaal/internal/config"
	"github.com/teemow/mahakaal/internal/google"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/llm"
	"github.com/teemow/mahakaal/internal/logging"
	"github.com/teemow/mahakaal/internal/tools"
	"github.com/teemow/mahakaal/internal/tools/calendar_tools"
)

// Global flags shared by all commands.
var (
	configFile string
	envFile    string
	debugMode  bool
)

// loadConfig reads the layered configuration and applies --debug.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)
	return logger, nil
}

// app is the assembled runtime shared by serve, chat, login and mcp.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	auth     *google.Authenticator
	registry *tools.Registry
}

// newApp wires OAuth, the calendar backend and the tool registry. provider
// may be nil, in which case nothing is recorded.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, provider *instrumentation.Provider) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if provider != nil {
		a.metrics = provider.Metrics()
	}

	oauthConfig, err := google.NewOAuthConfig(cfg.OAuth())
	switch {
	case errors.Is(err, google.ErrNoCredentials):
		logger.Warn("Google OAuth is not configured; calendar login is unavailable",
			slog.String("credentials_file", cfg.Google.CredentialsFile))
	case err != nil:
		return nil, err
	default:
		tokens := google.NewFileTokenProvider(cfg.Google.TokenFile)
		a.auth = google.NewAuthenticator(oauthConfig, tokens, a.metrics, logger)
	}

	svc, err := a.calendarService(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []tools.Option{tools.WithLogger(logger), tools.WithMetrics(a.metrics)}
	if provider != nil {
		opts = append(opts, tools.WithAuditLogger(provider.AuditLogger(logger)))
	}
	a.registry = tools.NewRegistry(opts...)
	if err := calendar_tools.Register(a.registry, svc, calendar_tools.Options{Location: loc}); err != nil {
		return nil, err
	}
	if err := a.registry.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) calendarService(ctx context.Context) (calendar.Service, error) {
	switch a.cfg.Calendar.Backend {
	case config.BackendMemory:
		a.logger.Info("using in-memory calendar; events are lost on exit")
		return calendar.NewMemory(), nil
	case config.BackendGoogle:
		if a.auth == nil {
			return nil, fmt.Errorf("calendar backend %q: %w", config.BackendGoogle, google.ErrNoCredentials)
		}
		return calendar.NewClient(ctx, a.auth.TokenSource(ctx),
			calendar.WithCalendarID(a.cfg.Calendar.CalendarID),
			calendar.WithMetrics(a.metrics),
		)
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", a.cfg.Calendar.Backend)
	}
}

// newAgent builds the model client and the orchestration loop over the
// app's registry.
func (a *app) newAgent() (*agent.Agent, error) {
	client, err := llm.NewClient(a.cfg.LLM())
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	prompt, err := a.cfg.SystemPrompt()
	if err != nil {
		return nil, err
	}

	model := llm.NewInstrumented(client, a.metrics, a.logger)
	a.logger.Info("model configured",
		logging.Provider(model.Provider()),
		slog.String("model", model.Model()),
	)

	return agent.New(model, a.registry,
		agent.WithMaxRounds(a.cfg.Agent.MaxRounds),
		agent.WithMaxIdenticalCalls(a.cfg.Agent.MaxIdenticalCalls),
		agent.WithSystemPrompt(prompt),
		agent.WithLogger(a.logger),
		agent.WithMetrics(a.metrics),
	), nil
}

// newProvider starts OpenTelemetry from the [telemetry] settings.
func newProvider(ctx context.Context, cfg *config.Config) (*instrumentation.Provider, error) {
	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation(version))
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}

// prepare loads config and logger for a command.
func prepare(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
