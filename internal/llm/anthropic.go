package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mahakaal/internal/conversation"
)

// Anthropic is a Client backed by the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic client. A zero maxTokens selects
// DefaultMaxTokens.
func NewAnthropic(baseURL, apiKey, model string, maxTokens int64) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Provider returns "anthropic".
func (c *Anthropic) Provider() string { return ProviderAnthropic }

// Model returns the configured model name.
func (c *Anthropic) Model() string { return c.model }

// Complete implements Client.
func (c *Anthropic) Complete(ctx context.Context, messages []conversation.Message, tools []mcp.Tool) (Response, error) {
	msgs, system := anthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = anthropicTools(tools)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message request failed: %w", err)
	}

	var text string
	var calls []conversation.ToolCall
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		case anthropic.ToolUseBlock:
			args, err := conversation.ParseArguments(b.Input)
			if err != nil {
				args = map[string]any{}
			}
			calls = append(calls, conversation.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return newResponse(text, calls), nil
}

// anthropicMessages converts the conversation. System messages move to the
// separate system parameter and consecutive tool results share one user turn,
// since the API requires alternating roles.
func anthropicMessages(messages []conversation.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))

	var results []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(results) > 0 {
			result = append(result, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range messages {
		if m.Role == conversation.RoleTool {
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
			continue
		}
		flush()

		switch m.Role {
		case conversation.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case conversation.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case conversation.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()

	return result, system
}
