package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/logging"
)

// Named is implemented by clients that can report their provider and model.
type Named interface {
	Provider() string
	Model() string
}

// Instrumented wraps a Client with a span, request metrics and debug logs.
type Instrumented struct {
	next     Client
	provider string
	model    string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewInstrumented wraps next. metrics and logger may be nil.
func NewInstrumented(next Client, metrics *instrumentation.Metrics, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}

	provider, model := "unknown", ""
	if n, ok := next.(Named); ok {
		provider, model = n.Provider(), n.Model()
	}

	return &Instrumented{
		next:     next,
		provider: provider,
		model:    model,
		metrics:  metrics,
		logger:   logging.WithProvider(logger, provider),
	}
}

// Provider returns the wrapped provider name.
func (c *Instrumented) Provider() string { return c.provider }

// Model returns the wrapped model name.
func (c *Instrumented) Model() string { return c.model }

// Complete implements Client.
func (c *Instrumented) Complete(ctx context.Context, messages []conversation.Message, tools []mcp.Tool) (Response, error) {
	ctx, span := instrumentation.StartModelSpan(ctx, c.provider, c.model,
		attribute.Int("llm.messages", len(messages)),
		attribute.Int("llm.tools", len(tools)),
	)

	start := time.Now()
	resp, err := c.next.Complete(ctx, messages, tools)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		c.logger.Warn("model request failed", logging.Err(err), slog.Duration("duration", duration))
	} else {
		calls := 0
		if req, ok := resp.(ToolRequest); ok {
			calls = len(req.Calls)
		}
		span.SetAttributes(attribute.Int(instrumentation.SpanAttrToolCalls, calls))
		c.logger.Debug("model request completed",
			slog.Int("tool_calls", calls),
			slog.Duration("duration", duration),
		)
	}

	instrumentation.EndSpan(span, err)
	c.metrics.RecordModelRequest(ctx, c.provider, c.model, status, duration)

	return resp, err
}
