package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"system", System("be brief"), false},
		{"user", User("hi"), false},
		{"assistant text only", Assistant("hello"), false},
		{"assistant with calls", Assistant("", ToolCall{ID: "c1", Name: "list_events"}), false},
		{"assistant call without id", Assistant("", ToolCall{Name: "list_events"}), true},
		{"assistant duplicate ids", Assistant("", ToolCall{ID: "c1", Name: "a"}, ToolCall{ID: "c1", Name: "b"}), true},
		{"tool result", ToolResult("c1", "list_events", "ok"), false},
		{"tool without call id", Message{Role: RoleTool, Content: "ok"}, true},
		{"user with tool call id", Message{Role: RoleUser, ToolCallID: "c1"}, true},
		{"unknown role", Message{Role: "robot"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessage_JSONWireFormat(t *testing.T) {
	msg := Assistant("", ToolCall{
		ID:        "call_abc",
		Name:      "list_events",
		Arguments: map[string]any{"date_str": "2025-06-02"},
	})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "assistant", raw["role"])
	assert.Nil(t, raw["content"], "assistant without text encodes null content")

	calls, ok := raw["tool_calls"].([]any)
	require.True(t, ok)
	require.Len(t, calls, 1)

	call := calls[0].(map[string]any)
	assert.Equal(t, "call_abc", call["id"])
	assert.Equal(t, "function", call["type"])
	fn := call["function"].(map[string]any)
	assert.Equal(t, "list_events", fn["name"])
	assert.JSONEq(t, `{"date_str":"2025-06-02"}`, fn["arguments"].(string))

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestMessage_UnmarshalClientHistory(t *testing.T) {
	payload := `[
		{"role":"user","content":"What's on tomorrow?"},
		{"role":"assistant","content":null,"tool_calls":[{"id":"c1","type":"function","function":{"name":"get_current_datetime","arguments":"{}"}}]},
		{"role":"tool","tool_call_id":"c1","name":"get_current_datetime","content":"Sunday, 2025-06-01 09:00:00"}
	]`

	var msgs []Message
	require.NoError(t, json.Unmarshal([]byte(payload), &msgs))
	require.Len(t, msgs, 3)

	assert.Equal(t, User("What's on tomorrow?"), msgs[0])
	assert.True(t, msgs[1].HasToolCalls())
	assert.Equal(t, "get_current_datetime", msgs[1].ToolCalls[0].Name)
	assert.Empty(t, msgs[1].ToolCalls[0].Arguments)
	assert.Equal(t, ToolResult("c1", "get_current_datetime", "Sunday, 2025-06-01 09:00:00"), msgs[2])
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{"empty", ``, map[string]any{}, false},
		{"null", `null`, map[string]any{}, false},
		{"empty string", `""`, map[string]any{}, false},
		{"object", `{"days":7}`, map[string]any{"days": float64(7)}, false},
		{"encoded string", `"{\"query\":\"Gym\"}"`, map[string]any{"query": "Gym"}, false},
		{"broken", `"{not json"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArguments(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
