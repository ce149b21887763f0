// Package llm invokes chat models that can request tool calls.
//
// Every provider implements Client: it takes the ordered conversation and the
// advertised tool definitions and returns either a PlainAnswer or a
// ToolRequest. Tool schemas are declared once as mcp.Tool values and
// converted to each provider's wire format here, so the tool registry stays
// provider-agnostic.
//
// Supported providers:
//   - openai (default): github.com/openai/openai-go/v3
//   - anthropic: github.com/anthropics/anthropic-sdk-go
//   - ollama: github.com/ollama/ollama/api
//
// Use NewClient to build a provider from Config and wrap it with
// NewInstrumented to get a span and metrics per request.
package llm
