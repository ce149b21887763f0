package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"github.com/teemow/mahakaal/internal/conversation"
)

// Ollama is a Client backed by a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
	newID  func() string
}

// NewOllama creates an Ollama client. Empty values select DefaultOllamaURL
// and DefaultOllamaModel.
func NewOllama(baseURL, model string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL %q: %w", baseURL, err)
	}

	return &Ollama{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
		newID:  newCallID,
	}, nil
}

// Provider returns "ollama".
func (c *Ollama) Provider() string { return ProviderOllama }

// Model returns the configured model name.
func (c *Ollama) Model() string { return c.model }

// Complete implements Client. Ollama does not assign tool call ids, so each
// call gets a generated one.
func (c *Ollama) Complete(ctx context.Context, messages []conversation.Message, tools []mcp.Tool) (Response, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages(messages),
		Tools:    ollamaTools(tools),
		Stream:   &stream,
	}

	var reply api.Message
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.Content += resp.Message.Content
		reply.ToolCalls = append(reply.ToolCalls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	var calls []conversation.ToolCall
	for _, tc := range reply.ToolCalls {
		args := map[string]any(tc.Function.Arguments)
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, conversation.ToolCall{
			ID:        c.newID(),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return newResponse(reply.Content, calls), nil
}

func ollamaMessages(messages []conversation.Message) []api.Message {
	result := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if m.Role == conversation.RoleTool {
			msg.ToolName = m.Name
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		result = append(result, msg)
	}
	return result
}

func newCallID() string {
	return "call_" + uuid.NewString()
}
