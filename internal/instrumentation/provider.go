package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the meter and tracer providers of the process and the
// Metrics recorder built on them.
type Provider struct {
	config     Config
	meters     *metric.MeterProvider
	tracers    *sdktrace.TracerProvider
	metrics    *Metrics
	prometheus bool
}

// NewProvider builds the exporters selected by config and installs them as
// the global OpenTelemetry providers. A disabled config yields a provider
// whose Metrics records nothing.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return &Provider{config: config, metrics: &Metrics{}}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(config.resourceAttributes()...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reader, isPrometheus, err := newMetricReader(ctx, config)
	if err != nil {
		return nil, err
	}
	p := &Provider{
		config:     config,
		prometheus: isPrometheus,
		meters:     metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)),
	}

	p.tracers, err = newTracerProvider(ctx, config, res)
	if err != nil {
		return nil, errors.Join(err, p.meters.Shutdown(ctx))
	}

	otel.SetMeterProvider(p.meters)
	otel.SetTracerProvider(p.tracers)

	p.metrics, err = NewMetrics(p.meters.Meter(config.ServiceName), config.DetailedLabels)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create metrics recorder: %w", err), p.Shutdown(ctx))
	}
	return p, nil
}

// resourceAttributes describes this process: service identity, deployment
// and the model and calendar it is wired to. Empty values are left out.
func (c Config) resourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
		semconv.ServiceInstanceID(uuid.NewString()),
	}
	if c.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(c.Environment))
	}
	if c.ModelProvider != "" {
		attrs = append(attrs, AttrModelProvider.String(c.ModelProvider))
	}
	if c.ModelName != "" {
		attrs = append(attrs, AttrModelName.String(c.ModelName))
	}
	if c.CalendarBackend != "" {
		attrs = append(attrs, AttrCalendarBackend.String(c.CalendarBackend))
	}
	return attrs
}

// newMetricReader returns the reader for config.MetricsExporter. The bool
// reports a Prometheus reader, which registers with the default registry.
func newMetricReader(ctx context.Context, config Config) (metric.Reader, bool, error) {
	interval := config.MetricInterval
	if interval <= 0 {
		interval = DefaultMetricInterval
	}

	switch config.MetricsExporter {
	case ExporterPrometheus, "":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, false, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		return exporter, true, nil

	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, false, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter, metric.WithInterval(interval)), false, nil

	case ExporterStdout:
		slog.Warn("stdout metrics exporter enabled, use for debugging only",
			slog.String("component", "instrumentation"))
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, false, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter, metric.WithInterval(interval)), false, nil
	}
	return nil, false, fmt.Errorf("unsupported metrics exporter: %s", config.MetricsExporter)
}

// newTracerProvider samples nothing when tracing is off so span helpers stay
// cheap. Otherwise root spans are sampled at TraceSamplingRate and children
// follow their parent.
func newTracerProvider(ctx context.Context, config Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch config.TracingExporter {
	case ExporterNone, "":
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil

	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			slog.Warn("OTLP trace export without TLS; spans carry tool names and session ids",
				slog.String("component", "instrumentation"),
				slog.String("endpoint", config.OTLPEndpoint))
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)

	case ExporterStdout:
		slog.Warn("stdout trace exporter enabled, use for debugging only",
			slog.String("component", "instrumentation"))
		exporter, err = stdouttrace.New()

	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", config.TracingExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", config.TracingExporter, err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.TraceSamplingRate))),
	), nil
}

// Metrics returns the recorder. It is never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer, or a no-op tracer when disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracers == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracers.Tracer(name)
}

// PrometheusEnabled reports whether metrics are exported through the default
// Prometheus registry, which the metrics server serves with promhttp.
func (p *Provider) PrometheusEnabled() bool {
	return p.prometheus
}

// AuditLogger returns an audit logger configured from the provider's
// audit settings.
func (p *Provider) AuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLogger(logger, p.config.AuditLogging)
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracers != nil {
		if err := p.tracers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns true if instrumentation is enabled.
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
