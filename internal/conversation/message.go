package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies the variant of a Message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-emitted request to invoke one named tool.
// ID is opaque and provider-assigned, unique within one assistant turn.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one entry of a conversation. The populated fields depend on Role:
//
//   - system, user: Content
//   - assistant: optional Content and ordered ToolCalls
//   - tool: ToolCallID, Name and Content (the tool result)
//
// Use the System, User, Assistant and ToolResult constructors rather than
// filling the struct by hand.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// System creates a system instruction message.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// User creates a user message.
func User(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Assistant creates an assistant message with optional text and requested calls.
func Assistant(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResult creates the tool message answering the call with the given id.
func ToolResult(callID, name, result string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: result}
}

// HasToolCalls reports whether the message is an assistant turn requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Validate checks the per-variant field requirements.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser:
		if len(m.ToolCalls) > 0 || m.ToolCallID != "" {
			return fmt.Errorf("%s message cannot carry tool call fields", m.Role)
		}
	case RoleAssistant:
		if m.ToolCallID != "" {
			return errors.New("assistant message cannot carry a tool_call_id")
		}
		seen := make(map[string]bool, len(m.ToolCalls))
		for _, call := range m.ToolCalls {
			if call.ID == "" || call.Name == "" {
				return errors.New("assistant tool call requires id and name")
			}
			if seen[call.ID] {
				return fmt.Errorf("duplicate tool call id %q", call.ID)
			}
			seen[call.ID] = true
		}
	case RoleTool:
		if m.ToolCallID == "" {
			return errors.New("tool message requires tool_call_id")
		}
	default:
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	return nil
}

// wireToolCall is the OpenAI-style JSON shape of a tool call. Arguments are a
// JSON-encoded string on the wire.
type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// MarshalJSON encodes the call in the chat-completions wire format.
func (c ToolCall) MarshalJSON() ([]byte, error) {
	args := c.Arguments
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments of %s: %w", c.Name, err)
	}

	var w wireToolCall
	w.ID = c.ID
	w.Type = "function"
	w.Function.Name = c.Name
	w.Function.Arguments = string(encoded)
	return json.Marshal(w)
}

// UnmarshalJSON decodes the chat-completions wire format. Arguments may be a
// JSON string or an inline object.
func (c *ToolCall) UnmarshalJSON(data []byte) error {
	var w struct {
		ID       string `json:"id"`
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	args, err := ParseArguments(w.Function.Arguments)
	if err != nil {
		return fmt.Errorf("tool call %s: %w", w.ID, err)
	}

	c.ID = w.ID
	c.Name = w.Function.Name
	c.Arguments = args
	return nil
}

// ParseArguments decodes tool arguments that arrive either as a JSON object or
// as a string containing a JSON object. Empty input yields an empty map.
func ParseArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		if s == "" {
			return args, nil
		}
		raw = json.RawMessage(s)
	}

	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

type wireMessage struct {
	Role       Role       `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// MarshalJSON encodes the message in the chat-completions wire format. An
// assistant message without text encodes its content as null.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		Role:       m.Role,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	if m.Content != "" || m.Role != RoleAssistant {
		content := m.Content
		w.Content = &content
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the chat-completions wire format.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*m = Message{
		Role:       w.Role,
		ToolCalls:  w.ToolCalls,
		ToolCallID: w.ToolCallID,
		Name:       w.Name,
	}
	if w.Content != nil {
		m.Content = *w.Content
	}
	return nil
}
