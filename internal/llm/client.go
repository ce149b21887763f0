package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mahakaal/internal/conversation"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-5-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultOllamaModel    = "llama3.1"
	DefaultOllamaURL      = "http://localhost:11434"
)

// DefaultMaxTokens bounds Anthropic responses, which require an explicit limit.
const DefaultMaxTokens = 4096

var (
	// ErrUnknownProvider is returned by NewClient for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingAPIKey is returned when a hosted provider has no API key.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrEmptyResponse is returned when a provider answers without any choice.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Client invokes a chat model once.
type Client interface {
	// Complete sends the conversation and the available tools and returns
	// the model's reply. Errors are transport or provider failures.
	Complete(ctx context.Context, messages []conversation.Message, tools []mcp.Tool) (Response, error)
}

// Response is either a PlainAnswer or a ToolRequest.
type Response interface {
	// Message converts the reply into the assistant message that records it.
	Message() conversation.Message
	isResponse()
}

// PlainAnswer is a final text reply with no tool calls.
type PlainAnswer struct {
	Text string
}

// Message implements Response.
func (a PlainAnswer) Message() conversation.Message {
	return conversation.Assistant(a.Text)
}

func (PlainAnswer) isResponse() {}

// ToolRequest asks the caller to execute Calls in order. Text is whatever
// the model said alongside the calls and may be empty.
type ToolRequest struct {
	Text  string
	Calls []conversation.ToolCall
}

// Message implements Response.
func (r ToolRequest) Message() conversation.Message {
	return conversation.Assistant(r.Text, r.Calls...)
}

func (ToolRequest) isResponse() {}

// newResponse picks the variant from the parsed provider reply.
func newResponse(text string, calls []conversation.ToolCall) Response {
	if len(calls) == 0 {
		return PlainAnswer{Text: text}
	}
	return ToolRequest{Text: text, Calls: calls}
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int64
}

// DefaultModel returns the model a provider uses when none is configured,
// or "" for an unknown provider.
func DefaultModel(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOllama:
		return DefaultOllamaModel
	default:
		return ""
	}
}

// NewClient builds the client for cfg.Provider. An empty provider selects
// OpenAI.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderAnthropic:
		return NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case ProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
