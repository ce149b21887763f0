package agent

import (
	"log/slog"

	"github.com/teemow/mahakaal/internal/instrumentation"
)

// Defaults for the loop bounds.
const (
	DefaultMaxRounds         = 10
	DefaultMaxIdenticalCalls = 3
)

// Option configures an Agent.
type Option func(*Agent)

// WithMaxRounds caps the number of model invocations per run. Values below
// one are ignored.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithMaxIdenticalCalls sets how often the same tool may be dispatched with
// identical arguments in one run. Zero disables the guard.
func WithMaxIdenticalCalls(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.maxIdenticalCalls = n
		}
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt. An empty prompt is ignored.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}
