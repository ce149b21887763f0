package instrumentation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	assert.NotNil(t, provider.Metrics(), "metrics should be a no-op recorder when disabled")
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		wantPrometheus bool
	}{
		{
			name: "prometheus metrics without tracing",
			config: Config{
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterNone,
			},
			wantPrometheus: true,
		},
		{
			name: "stdout metrics and traces",
			config: Config{
				MetricsExporter:   ExporterStdout,
				TracingExporter:   ExporterStdout,
				TraceSamplingRate: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			tt.config.ServiceName = "test-service"
			tt.config.ServiceVersion = "1.0.0"
			tt.config.Enabled = true

			provider, err := NewProvider(ctx, tt.config)
			require.NoError(t, err)
			t.Cleanup(func() { _ = provider.Shutdown(ctx) })

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "unknown metrics exporter",
			config:  Config{Enabled: true, MetricsExporter: "invalid", TracingExporter: ExporterNone},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "invalid"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(testContext(t), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProvider_AuditLogger(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		AuditLogging: AuditLoggingConfig{Enabled: true, IncludeArguments: true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	al := provider.AuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	ti := NewToolInvocation("schedule_event", "call_1").
		WithArguments(map[string]any{"title": "Sync"})
	ti.Complete(nil)
	al.LogToolInvocation(context.Background(), ti)

	assert.Contains(t, buf.String(), "tool_executed")
	assert.Contains(t, buf.String(), "Sync")
}
