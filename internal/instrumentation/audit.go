package instrumentation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one dispatch of a model-requested tool call for
// audit logging.
//
// # Privacy Considerations
//
// Arguments can carry attendee email addresses and meeting titles. They are
// only written when the audit logger is configured with IncludeArguments.
type ToolInvocation struct {
	Tool     string
	CallID   string
	ReadOnly bool

	// Conversation context. Session is zero for stateless requests.
	Session int64
	Round   int

	Arguments map[string]any

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool, callID string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		CallID:    callID,
		StartTime: time.Now(),
	}
}

// WithArguments records the arguments the model supplied.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	ti.Arguments = args
	return ti
}

// WithReadOnly marks whether the tool only reads calendar data.
func (ti *ToolInvocation) WithReadOnly(readOnly bool) *ToolInvocation {
	ti.ReadOnly = readOnly
	return ti
}

// WithRound sets the session id and orchestration round.
func (ti *ToolInvocation) WithRound(session int64, round int) *ToolInvocation {
	ti.Session = session
	ti.Round = round
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging. Arguments are
// only included when includeArguments is set.
func (ti *ToolInvocation) LogAttrs(includeArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Bool("read_only", ti.ReadOnly),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.CallID != "" {
		attrs = append(attrs, slog.String("call_id", ti.CallID))
	}
	if ti.Session != 0 {
		attrs = append(attrs, slog.Int64("session", ti.Session))
	}
	if ti.Round > 0 {
		attrs = append(attrs, slog.Int("round", ti.Round))
	}
	if includeArguments && len(ti.Arguments) > 0 {
		if raw, err := json.Marshal(ti.Arguments); err == nil {
			attrs = append(attrs, slog.String("arguments", string(raw)))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger           *slog.Logger
	includeArguments bool
	enabled          bool
	level            slog.Level
}

// NewAuditLogger creates a new AuditLogger with the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if config.LogLevel != "" {
		// An unparseable level keeps the INFO default.
		_ = level.UnmarshalText([]byte(config.LogLevel))
	}
	return &AuditLogger{
		logger:           logger,
		includeArguments: config.IncludeArguments,
		enabled:          config.Enabled,
		level:            level,
	}
}

// LogToolInvocation writes the audit record. Failed invocations are
// always logged at WARN.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	level := al.level
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includeArguments)...)
}
