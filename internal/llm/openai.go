package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/teemow/mahakaal/internal/conversation"
)

// OpenAI is a Client backed by the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client. An empty baseURL uses the public API
// and an empty model selects DefaultOpenAIModel.
func NewOpenAI(baseURL, apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Provider returns "openai".
func (c *OpenAI) Provider() string { return ProviderOpenAI }

// Model returns the configured model name.
func (c *OpenAI) Model() string { return c.model }

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, messages []conversation.Message, tools []mcp.Tool) (Response, error) {
	msgs, err := openAIMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	}
	if len(tools) > 0 {
		params.Tools = openAITools(tools)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := completion.Choices[0].Message
	var calls []conversation.ToolCall
	for _, tc := range choice.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		args, err := conversation.ParseArguments(json.RawMessage(tc.Function.Arguments))
		if err != nil {
			// Surfaced to the model through the tool registry as a missing argument.
			args = map[string]any{}
		}
		calls = append(calls, conversation.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return newResponse(choice.Content, calls), nil
}

// openAIMessages converts the conversation to chat-completions params.
func openAIMessages(messages []conversation.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			result = append(result, openai.SystemMessage(m.Content))
		case conversation.RoleUser:
			result = append(result, openai.UserMessage(m.Content))
		case conversation.RoleTool:
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		case conversation.RoleAssistant:
			if !m.HasToolCalls() {
				result = append(result, openai.AssistantMessage(m.Content))
				continue
			}

			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, call := range m.ToolCalls {
				args, err := encodeArguments(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("failed to encode arguments of %s: %w", call.Name, err)
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: args,
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return result, nil
}

func encodeArguments(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
