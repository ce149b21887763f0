package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailedLabels bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailedLabels)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// int64Sum collects the named counter and returns the data points keyed by
// their encoded attribute set.
func int64Sum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	points := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has data type %T, want Sum[int64]", name, md.Data)
			}
			for _, dp := range sum.DataPoints {
				points[dp.Attributes.Encoded(attribute.DefaultEncoder())] = dp.Value
			}
		}
	}
	return points
}

func encoded(kvs ...attribute.KeyValue) string {
	set := attribute.NewSet(kvs...)
	return set.Encoded(attribute.DefaultEncoder())
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/chat", 200, 100*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/chat", 200, 50*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/auth/status", 500, 5*time.Millisecond)

	points := int64Sum(t, reader, "http_requests_total")
	key := encoded(
		attribute.String(attrMethod, "POST"),
		attribute.String(attrPath, "/chat"),
		attribute.String(attrStatus, "200"),
	)
	if points[key] != 2 {
		t.Errorf("POST /chat 200 count = %d, want 2 (points: %v)", points[key], points)
	}
	if len(points) != 2 {
		t.Errorf("expected 2 attribute sets, got %d", len(points))
	}
}

func TestMetrics_ActiveStreams(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.StreamOpened(ctx)
	m.StreamOpened(ctx)
	m.StreamClosed(ctx)

	points := int64Sum(t, reader, "active_chat_streams")
	if points[encoded()] != 1 {
		t.Errorf("active streams = %d, want 1", points[encoded()])
	}
}

func TestMetrics_RecordModelRequest(t *testing.T) {
	tests := []struct {
		name           string
		detailedLabels bool
		wantKey        string
	}{
		{
			name:           "model label omitted by default",
			detailedLabels: false,
			wantKey: encoded(
				attribute.String(attrProvider, "openai"),
				attribute.String(attrStatus, StatusSuccess),
			),
		},
		{
			name:           "model label with detailed labels",
			detailedLabels: true,
			wantKey: encoded(
				attribute.String(attrProvider, "openai"),
				attribute.String(attrStatus, StatusSuccess),
				attribute.String(attrModel, "gpt-4o"),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailedLabels)
			m.RecordModelRequest(context.Background(), "openai", "gpt-4o", StatusSuccess, time.Second)

			points := int64Sum(t, reader, "model_requests_total")
			if points[tt.wantKey] != 1 {
				t.Errorf("expected one request under %q, got %v", tt.wantKey, points)
			}
		})
	}
}

func TestMetrics_RecordAgentRun(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordAgentRun(ctx, OutcomeAnswer, 2)
	m.RecordAgentRun(ctx, OutcomeAnswer, 1)
	m.RecordAgentRun(ctx, OutcomeRoundLimit, 10)

	points := int64Sum(t, reader, "agent_runs_total")
	if got := points[encoded(attribute.String(attrOutcome, OutcomeAnswer))]; got != 2 {
		t.Errorf("answer runs = %d, want 2", got)
	}
	if got := points[encoded(attribute.String(attrOutcome, OutcomeRoundLimit))]; got != 1 {
		t.Errorf("round limit runs = %d, want 1", got)
	}
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "list_events", StatusSuccess, 10*time.Millisecond)
	m.RecordToolInvocation(ctx, "list_events", StatusError, 10*time.Millisecond)
	m.RecordRepeatedCall(ctx, "list_events")

	points := int64Sum(t, reader, "tool_invocations_total")
	okKey := encoded(attribute.String(attrTool, "list_events"), attribute.String(attrStatus, StatusSuccess))
	if points[okKey] != 1 {
		t.Errorf("successful invocations = %d, want 1", points[okKey])
	}

	repeated := int64Sum(t, reader, "agent_repeated_tool_calls_total")
	if repeated[encoded(attribute.String(attrTool, "list_events"))] != 1 {
		t.Errorf("repeated calls = %v, want one for list_events", repeated)
	}
}

func TestMetrics_RecordGoogleAPIAndOAuth(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, StatusError, 500*time.Millisecond)
	m.RecordOAuthAuth(ctx, OAuthResultSuccess)
	m.RecordOAuthAuth(ctx, OAuthResultFailure)
	m.RecordOAuthAuth(ctx, OAuthResultFailure)

	google := int64Sum(t, reader, "google_api_operations_total")
	listKey := encoded(
		attribute.String(attrService, ServiceCalendar),
		attribute.String(attrOperation, OperationList),
		attribute.String(attrStatus, StatusSuccess),
	)
	if google[listKey] != 1 {
		t.Errorf("calendar list operations = %d, want 1", google[listKey])
	}

	oauth := int64Sum(t, reader, "oauth_auth_total")
	if got := oauth[encoded(attribute.String(attrResult, OAuthResultFailure))]; got != 2 {
		t.Errorf("oauth failures = %d, want 2", got)
	}
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"zero value": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			// None of these should panic.
			m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
			m.StreamOpened(ctx)
			m.StreamClosed(ctx)
			m.RecordModelRequest(ctx, "ollama", "llama3", StatusSuccess, time.Millisecond)
			m.RecordAgentRun(ctx, OutcomeAnswer, 1)
			m.RecordRepeatedCall(ctx, "list_events")
			m.RecordToolInvocation(ctx, "list_events", StatusSuccess, time.Millisecond)
			m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationGet, StatusSuccess, time.Millisecond)
			m.RecordOAuthAuth(ctx, OAuthResultSuccess)
		})
	}
}
