package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/teemow/mahakaal/internal/agent"
	"github.com/teemow/mahakaal/internal/google"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/llm"
	"github.com/teemow/mahakaal/internal/session"
)

// Default file names.
const (
	DefaultFile    = "mahakaal.toml"
	DefaultEnvFile = ".env"
)

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Server defaults.
const (
	DefaultAddr        = ":8000"
	DefaultMetricsAddr = ":9090"
	DefaultFrontendURL = "http://localhost:5173"
)

// Config is the complete application configuration.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Server    ServerConfig    `toml:"server"`
	Model     ModelConfig     `toml:"model"`
	Agent     AgentConfig     `toml:"agent"`
	Calendar  CalendarConfig  `toml:"calendar"`
	Google    GoogleConfig    `toml:"google"`
	Session   SessionConfig   `toml:"session"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	MetricsAddr    string   `toml:"metrics_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	FrontendURL    string   `toml:"frontend_url"`
}

// ModelConfig selects the language model.
type ModelConfig struct {
	Provider  string `toml:"provider"`
	Name      string `toml:"name"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	MaxTokens int64  `toml:"max_tokens"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxRounds         int    `toml:"max_rounds"`
	MaxIdenticalCalls int    `toml:"max_identical_calls"`
	SystemPromptFile  string `toml:"system_prompt_file"`
}

// CalendarConfig selects the calendar backend.
type CalendarConfig struct {
	Backend    string `toml:"backend"`
	CalendarID string `toml:"calendar_id"`
	TimeZone   string `toml:"time_zone"`
}

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
	RedirectURL     string `toml:"redirect_url"`
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
}

// SessionConfig locates the chat history database.
type SessionConfig struct {
	DBPath string `toml:"db_path"`
}

// TelemetryConfig selects metrics and trace export and audit logging.
type TelemetryConfig struct {
	Enabled         bool    `toml:"enabled"`
	Environment     string  `toml:"environment"`
	MetricsExporter string  `toml:"metrics_exporter"`
	TracingExporter string  `toml:"tracing_exporter"`
	OTLPEndpoint    string  `toml:"otlp_endpoint"`
	OTLPInsecure    bool    `toml:"otlp_insecure"`
	SamplingRate    float64 `toml:"sampling_rate"`
	DetailedLabels  bool    `toml:"detailed_labels"`
	Audit           bool    `toml:"audit"`
	AuditArguments  bool    `toml:"audit_arguments"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           DefaultAddr,
			MetricsAddr:    DefaultMetricsAddr,
			AllowedOrigins: []string{"*"},
			FrontendURL:    DefaultFrontendURL,
		},
		Model: ModelConfig{
			Provider: llm.ProviderOpenAI,
		},
		Agent: AgentConfig{
			MaxRounds:         agent.DefaultMaxRounds,
			MaxIdenticalCalls: agent.DefaultMaxIdenticalCalls,
		},
		Calendar: CalendarConfig{
			Backend:    BackendGoogle,
			CalendarID: "primary",
			TimeZone:   "Local",
		},
		Google: GoogleConfig{
			CredentialsFile: google.DefaultCredentialsFile,
			TokenFile:       google.DefaultTokenFile,
			RedirectURL:     google.DefaultRedirectURL,
		},
		Session: SessionConfig{
			DBPath: session.DefaultPath,
		},
		Telemetry: defaultTelemetry(),
	}
}

func defaultTelemetry() TelemetryConfig {
	d := instrumentation.DefaultConfig()
	return TelemetryConfig{
		Enabled:         d.Enabled,
		MetricsExporter: d.MetricsExporter,
		TracingExporter: d.TracingExporter,
		SamplingRate:    d.TraceSamplingRate,
		Audit:           d.AuditLogging.Enabled,
	}
}

// Load builds the configuration. An empty path reads DefaultFile when it
// exists; an explicit path must exist. envFile is optional.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	switch {
	case path != "":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case fileExists(DefaultFile):
		if _, err := toml.DecodeFile(DefaultFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", DefaultFile, err)
		}
	}

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolveAPIKey()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "MAHAKAAL_LOG_LEVEL")
	setString(&c.Server.Addr, "MAHAKAAL_ADDR")
	setString(&c.Server.MetricsAddr, "MAHAKAAL_METRICS_ADDR")
	setString(&c.Server.FrontendURL, "FRONTEND_URL")
	if v := os.Getenv("MAHAKAAL_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = SplitList(v)
	}

	setString(&c.Model.Provider, "MAHAKAAL_PROVIDER")
	setString(&c.Model.Name, "MAHAKAAL_MODEL")
	setString(&c.Model.BaseURL, "MAHAKAAL_BASE_URL")

	setString(&c.Agent.SystemPromptFile, "MAHAKAAL_SYSTEM_PROMPT_FILE")
	if err := setInt(&c.Agent.MaxRounds, "MAHAKAAL_MAX_ROUNDS"); err != nil {
		return err
	}
	if err := setInt(&c.Agent.MaxIdenticalCalls, "MAHAKAAL_MAX_IDENTICAL_CALLS"); err != nil {
		return err
	}

	setString(&c.Calendar.Backend, "MAHAKAAL_CALENDAR_BACKEND")
	setString(&c.Calendar.CalendarID, "MAHAKAAL_CALENDAR_ID")
	setString(&c.Calendar.TimeZone, "MAHAKAAL_TIMEZONE")

	setString(&c.Google.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.Google.TokenFile, "GOOGLE_TOKEN_FILE")
	setString(&c.Google.RedirectURL, "REDIRECT_URI")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")

	setString(&c.Session.DBPath, "MAHAKAAL_DB_PATH")

	t := &c.Telemetry
	setString(&t.Environment, "MAHAKAAL_ENVIRONMENT")
	setString(&t.MetricsExporter, "MAHAKAAL_METRICS_EXPORTER")
	setString(&t.TracingExporter, "MAHAKAAL_TRACING_EXPORTER")
	setString(&t.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	for key, dst := range map[string]*bool{
		"MAHAKAAL_TELEMETRY_ENABLED": &t.Enabled,
		"MAHAKAAL_OTLP_INSECURE":     &t.OTLPInsecure,
		"MAHAKAAL_DETAILED_LABELS":   &t.DetailedLabels,
		"MAHAKAAL_AUDIT":             &t.Audit,
		"MAHAKAAL_AUDIT_ARGUMENTS":   &t.AuditArguments,
	} {
		if err := setBool(dst, key); err != nil {
			return err
		}
	}
	return setFloat(&t.SamplingRate, "OTEL_TRACES_SAMPLER_ARG")
}

// resolveAPIKey picks the provider specific key when none is configured.
func (c *Config) resolveAPIKey() {
	if c.Model.APIKey != "" {
		return
	}
	switch strings.ToLower(c.Model.Provider) {
	case llm.ProviderOpenAI, "":
		c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	case llm.ProviderAnthropic:
		c.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOllama:
		if c.Model.BaseURL == "" {
			c.Model.BaseURL = os.Getenv("OLLAMA_HOST")
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Model.Provider) {
	case llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("model.provider: %w: %q", llm.ErrUnknownProvider, c.Model.Provider))
	}
	if c.Agent.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be at least 1, got %d", c.Agent.MaxRounds))
	}
	if c.Agent.MaxIdenticalCalls < 0 {
		errs = append(errs, fmt.Errorf("agent.max_identical_calls cannot be negative, got %d", c.Agent.MaxIdenticalCalls))
	}
	switch c.Calendar.Backend {
	case BackendGoogle, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("calendar.backend must be %q or %q, got %q", BackendGoogle, BackendMemory, c.Calendar.Backend))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr cannot be empty"))
	}
	if err := c.Instrumentation("").Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.TimeZone == "" || c.Calendar.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("calendar.time_zone: %w", err)
	}
	return loc, nil
}

// LLM returns the model client configuration.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider:  c.Model.Provider,
		Model:     c.Model.Name,
		APIKey:    c.Model.APIKey,
		BaseURL:   c.Model.BaseURL,
		MaxTokens: c.Model.MaxTokens,
	}
}

// Instrumentation returns the telemetry settings for the given build
// version, tagged with the configured model and calendar backend.
func (c *Config) Instrumentation(version string) instrumentation.Config {
	ic := instrumentation.DefaultConfig()
	if version != "" {
		ic.ServiceVersion = version
	}
	provider := strings.ToLower(c.Model.Provider)
	model := c.Model.Name
	if model == "" {
		model = llm.DefaultModel(provider)
	}

	t := c.Telemetry
	ic.Environment = t.Environment
	ic.ModelProvider = provider
	ic.ModelName = model
	ic.CalendarBackend = c.Calendar.Backend
	ic.Enabled = t.Enabled
	ic.MetricsExporter = t.MetricsExporter
	ic.TracingExporter = t.TracingExporter
	ic.OTLPEndpoint = t.OTLPEndpoint
	ic.OTLPInsecure = t.OTLPInsecure
	ic.TraceSamplingRate = t.SamplingRate
	ic.DetailedLabels = t.DetailedLabels
	ic.AuditLogging.Enabled = t.Audit
	ic.AuditLogging.IncludeArguments = t.AuditArguments
	return ic
}

// OAuth returns the Google OAuth client settings.
func (c *Config) OAuth() google.OAuthConfig {
	return google.OAuthConfig{
		CredentialsFile: c.Google.CredentialsFile,
		ClientID:        c.Google.ClientID,
		ClientSecret:    c.Google.ClientSecret,
		RedirectURL:     c.Google.RedirectURL,
		Scopes:          google.DefaultOAuthScopes,
	}
}

// SystemPrompt returns the contents of agent.system_prompt_file, or
// agent.DefaultSystemPrompt when none is configured.
func (c *Config) SystemPrompt() (string, error) {
	if c.Agent.SystemPromptFile == "" {
		return agent.DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(c.Agent.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %s is empty", c.Agent.SystemPromptFile)
	}
	return prompt, nil
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
