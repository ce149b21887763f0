package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/logging"
)

// Handler executes a tool with the arguments the model supplied. A returned
// error is turned into an "Error: ..." result by the registry unless it is a
// FailureError.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool binds a definition to its implementation.
type Tool struct {
	Definition mcp.Tool
	Handler    Handler

	// ReadOnly marks tools that never modify the calendar.
	ReadOnly bool
}

// Name returns the tool name from its definition.
func (t Tool) Name() string {
	return t.Definition.Name
}

var (
	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrInvalidTool is returned for tools without a name or handler.
	ErrInvalidTool = errors.New("invalid tool")
)

// Registry routes tool calls by name. It is populated once at startup and
// read concurrently afterwards.
type Registry struct {
	order []string
	tools map[string]Tool

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records tool_invocations_total and tool_duration_seconds.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithAuditLogger writes an audit record for every dispatch.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(r *Registry) { r.audit = al }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Read-only tools are advertised with the MCP
// read-only hint.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if t.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	readOnly := t.ReadOnly
	t.Definition.Annotations.ReadOnlyHint = &readOnly

	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister is like Register but panics on error. Intended for static
// tool sets wired at startup.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Definitions returns the published tool definitions in registration order.
func (r *Registry) Definitions() []mcp.Tool {
	defs := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Validate checks that every published definition routes to a handler and
// that every required argument is declared in the schema. Call it at startup.
func (r *Registry) Validate() error {
	var errs []error
	if len(r.order) != len(r.tools) {
		errs = append(errs, fmt.Errorf("registry index out of sync: %d names, %d tools", len(r.order), len(r.tools)))
	}
	for _, name := range r.order {
		t, ok := r.tools[name]
		if !ok {
			errs = append(errs, fmt.Errorf("published tool %s has no implementation", name))
			continue
		}
		if t.Handler == nil {
			errs = append(errs, fmt.Errorf("tool %s has no handler", name))
		}
		for _, req := range t.Definition.InputSchema.Required {
			if _, declared := t.Definition.InputSchema.Properties[req]; !declared {
				errs = append(errs, fmt.Errorf("tool %s requires undeclared argument %s", name, req))
			}
		}
	}
	return errors.Join(errs...)
}

// Dispatch executes the named tool and returns its result. It never returns
// an error and never panics: every failure is encoded in the result string so
// the caller can always produce a Tool message.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}

	info := callInfoFromContext(ctx)
	t, known := r.tools[name]

	ctx, span := instrumentation.StartToolSpan(ctx, instrumentation.ToolLabel(name, r.Has),
		attribute.String(instrumentation.SpanAttrToolCallID, info.CallID),
		attribute.Bool(instrumentation.SpanAttrReadOnly, t.ReadOnly),
	)
	invocation := instrumentation.NewToolInvocation(name, info.CallID).
		WithArguments(args).
		WithReadOnly(t.ReadOnly).
		WithRound(info.Session, info.Round).
		WithSpanContext(ctx)

	start := time.Now()
	result, err := r.dispatch(ctx, t, known, name, args)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		r.logger.Warn("tool dispatch failed",
			logging.Tool(name),
			logging.CallID(info.CallID),
			logging.Err(err),
		)
	}

	instrumentation.EndSpan(span, err)
	r.metrics.RecordToolInvocation(ctx, instrumentation.ToolLabel(name, r.Has), status, duration)
	r.audit.LogToolInvocation(ctx, invocation.Complete(err))

	return result
}

// dispatch runs the handler and converts every failure mode into a result
// string. The returned error only feeds instrumentation.
func (r *Registry) dispatch(ctx context.Context, t Tool, known bool, name string, args map[string]any) (result string, err error) {
	if !known {
		err = fmt.Errorf("unknown tool %q", name)
		return fmt.Sprintf("Error: Unknown tool '%s'", name), err
	}

	for _, req := range t.Definition.InputSchema.Required {
		if v, ok := args[req]; !ok || v == nil {
			err = fmt.Errorf("missing required argument %q", req)
			return fmt.Sprintf("Error: missing required argument '%s' for tool '%s'", req, name), err
		}
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, p)
			result = fmt.Sprintf("System Error: %v", p)
		}
	}()

	out, herr := t.Handler(ctx, args)
	if herr != nil {
		var failure *FailureError
		if errors.As(herr, &failure) {
			return failure.Result, herr
		}
		return fmt.Sprintf("Error: %v", herr), herr
	}
	return out, nil
}

// FailureError is a handler error that carries its own result text. The
// registry returns Result to the model unchanged but still records the call
// as failed.
type FailureError struct {
	Result string
	Err    error
}

// Failure wraps err with the result text the model should see.
func Failure(result string, err error) error {
	return &FailureError{Result: result, Err: err}
}

func (e *FailureError) Error() string { return e.Err.Error() }

func (e *FailureError) Unwrap() error { return e.Err }
