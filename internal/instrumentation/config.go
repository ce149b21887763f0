package instrumentation

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Config controls what the Provider exports. The application fills it from
// the [telemetry] section of its configuration; see config.Config.Instrumentation.
type Config struct {
	// ServiceName and ServiceVersion identify this process in every exported
	// resource.
	ServiceName    string
	ServiceVersion string

	// Environment becomes deployment.environment, e.g. "dev" or "prod".
	Environment string

	// ModelProvider, ModelName and CalendarBackend describe what this
	// process talks to. They are attached as resource attributes so that
	// dashboards can split by model without adding per-series labels.
	ModelProvider   string
	ModelName       string
	CalendarBackend string

	// Enabled turns the provider into a no-op when false.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string

	// OTLPInsecure disables TLS to the collector. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of root spans kept, 0.0 to 1.0.
	TraceSamplingRate float64

	// MetricInterval is the push interval of the otlp and stdout metric
	// exporters. Prometheus is pulled and ignores it.
	MetricInterval time.Duration

	// DetailedLabels adds the model name to model metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludeArguments writes tool arguments to the audit log. Arguments can
	// contain attendee email addresses, so this is off by default.
	IncludeArguments bool

	// LogLevel sets the slog level for audit records (default: INFO).
	LogLevel string
}

// Resource attribute keys for this application.
const (
	AttrModelProvider   = attribute.Key("mahakaal.model.provider")
	AttrModelName       = attribute.Key("mahakaal.model.name")
	AttrCalendarBackend = attribute.Key("mahakaal.calendar.backend")
)

// DefaultConfig returns the built-in telemetry settings: Prometheus metrics,
// no tracing, audit logging without arguments.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "mahakaal",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		MetricInterval:    DefaultMetricInterval,
		AuditLogging: AuditLoggingConfig{
			Enabled:  true,
			LogLevel: "info",
		},
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate))
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}

	if c.MetricInterval < 0 {
		errs = append(errs, fmt.Errorf("metric interval cannot be negative, got %s", c.MetricInterval))
	}

	return errors.Join(errs...)
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	// Orchestration outcomes
	OutcomeAnswer     = "answer"
	OutcomeError      = "error"
	OutcomeRoundLimit = "round_limit"
	OutcomeCanceled   = "canceled"

	// Google service names
	ServiceCalendar = "calendar"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval is the push interval of periodic metric readers.
	DefaultMetricInterval = 10 * time.Second
)
