package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrProvider  = "provider"
	attrModel     = "model"
	attrOutcome   = "outcome"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeStreams       metric.Int64UpDownCounter

	// Model metrics
	modelRequestsTotal   metric.Int64Counter
	modelRequestDuration metric.Float64Histogram

	// Orchestration metrics
	agentRunsTotal metric.Int64Counter
	agentRunRounds metric.Int64Histogram
	repeatedCalls  metric.Int64Counter

	// Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeStreams, err = meter.Int64UpDownCounter(
		"active_chat_streams",
		metric.WithDescription("Number of chat event streams currently open"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_chat_streams gauge: %w", err)
	}

	// Model Metrics
	m.modelRequestsTotal, err = meter.Int64Counter(
		"model_requests_total",
		metric.WithDescription("Total number of language model requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model_requests_total counter: %w", err)
	}

	m.modelRequestDuration, err = meter.Float64Histogram(
		"model_request_duration_seconds",
		metric.WithDescription("Language model request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model_request_duration_seconds histogram: %w", err)
	}

	// Orchestration Metrics
	m.agentRunsTotal, err = meter.Int64Counter(
		"agent_runs_total",
		metric.WithDescription("Total number of orchestration runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_total counter: %w", err)
	}

	m.agentRunRounds, err = meter.Int64Histogram(
		"agent_run_rounds",
		metric.WithDescription("Number of model rounds per orchestration run"),
		metric.WithUnit("{round}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10, 15, 20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_run_rounds histogram: %w", err)
	}

	m.repeatedCalls, err = meter.Int64Counter(
		"agent_repeated_tool_calls_total",
		metric.WithDescription("Total number of identical tool calls refused by the repeat guard"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_repeated_tool_calls_total counter: %w", err)
	}

	// Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	// Google API Metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// StreamOpened increments the open chat stream gauge.
func (m *Metrics) StreamOpened(ctx context.Context) {
	if m == nil || m.activeStreams == nil {
		return
	}
	m.activeStreams.Add(ctx, 1)
}

// StreamClosed decrements the open chat stream gauge.
func (m *Metrics) StreamClosed(ctx context.Context) {
	if m == nil || m.activeStreams == nil {
		return
	}
	m.activeStreams.Add(ctx, -1)
}

// RecordModelRequest records one language model call.
//
// Parameters:
//   - provider: Provider name (openai, anthropic, ollama)
//   - model: Model name, only attached when detailed labels are enabled
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the call
func (m *Metrics) RecordModelRequest(ctx context.Context, provider, model, status string, duration time.Duration) {
	if m == nil || m.modelRequestsTotal == nil || m.modelRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}

	m.modelRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.modelRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAgentRun records a finished orchestration run with its outcome
// (OutcomeAnswer, OutcomeError, OutcomeRoundLimit, OutcomeCanceled) and round count.
func (m *Metrics) RecordAgentRun(ctx context.Context, outcome string, rounds int) {
	if m == nil || m.agentRunsTotal == nil || m.agentRunRounds == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))
	m.agentRunsTotal.Add(ctx, 1, attrs)
	m.agentRunRounds.Record(ctx, int64(rounds), attrs)
}

// RecordRepeatedCall records a tool call refused by the repeat guard.
func (m *Metrics) RecordRepeatedCall(ctx context.Context, toolName string) {
	if m == nil || m.repeatedCalls == nil {
		return
	}
	m.repeatedCalls.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTool, toolName)))
}

// RecordToolInvocation records a tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the tool, already normalized with ToolLabel
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an OAuth authentication attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
