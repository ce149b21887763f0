package llm

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mahakaal/internal/conversation"
)

func testTools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("get_current_datetime",
			mcp.WithDescription("Returns the current date and time."),
		),
		mcp.NewTool("schedule_event",
			mcp.WithDescription("Creates an event."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Event title")),
			mcp.WithNumber("duration_minutes", mcp.Description("Length in minutes")),
			mcp.WithArray("attendees", mcp.Items(map[string]any{"type": "string"})),
		),
	}
}

func TestOpenAITools(t *testing.T) {
	assert.Nil(t, openAITools(nil))

	converted := openAITools(testTools())
	require.Len(t, converted, 2)

	raw, err := json.Marshal(converted[1])
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Function struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			Parameters  map[string]any `json:"parameters"`
		} `json:"function"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "function", decoded.Type)
	assert.Equal(t, "schedule_event", decoded.Function.Name)
	assert.Equal(t, "Creates an event.", decoded.Function.Description)
	assert.Equal(t, "object", decoded.Function.Parameters["type"])
	assert.Equal(t, []any{"title"}, decoded.Function.Parameters["required"])
	assert.Contains(t, decoded.Function.Parameters["properties"], "attendees")
}

func TestAnthropicTools(t *testing.T) {
	converted := anthropicTools(testTools())
	require.Len(t, converted, 2)
	require.NotNil(t, converted[1].OfTool)
	assert.Equal(t, "schedule_event", converted[1].OfTool.Name)
	assert.Equal(t, []string{"title"}, converted[1].OfTool.InputSchema.Required)
	assert.NotNil(t, converted[0].OfTool.InputSchema.Properties)
}

func TestOllamaTools(t *testing.T) {
	converted := ollamaTools(testTools())
	require.Len(t, converted, 2)

	fn := converted[1].Function
	assert.Equal(t, "function", converted[1].Type)
	assert.Equal(t, "schedule_event", fn.Name)
	assert.Equal(t, "object", fn.Parameters.Type)
	assert.Equal(t, []string{"title"}, fn.Parameters.Required)
	assert.Equal(t, "Event title", fn.Parameters.Properties["title"].Description)
	assert.Equal(t, []string{"number"}, []string(fn.Parameters.Properties["duration_minutes"].Type))
	assert.NotNil(t, fn.Parameters.Properties["attendees"].Items)
}

func TestOllamaProperty_NonMapValue(t *testing.T) {
	type prop struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	got := ollamaProperty(prop{Type: "string", Description: "d"})
	assert.Equal(t, []string{"string"}, []string(got.Type))
	assert.Equal(t, "d", got.Description)
}

func sampleConversation() []conversation.Message {
	return []conversation.Message{
		conversation.System("be brief"),
		conversation.User("What do I have on Sunday and Monday?"),
		conversation.Assistant("",
			conversation.ToolCall{ID: "c1", Name: "list_events", Arguments: map[string]any{"date_str": "2025-06-01"}},
			conversation.ToolCall{ID: "c2", Name: "list_events", Arguments: map[string]any{"date_str": "2025-06-02"}},
		),
		conversation.ToolResult("c1", "list_events", "No events found for 2025-06-01. You are free."),
		conversation.ToolResult("c2", "list_events", "No events found for 2025-06-02. You are free."),
		conversation.Assistant("Both days are free."),
	}
}

func TestAnthropicMessages_GroupsToolResults(t *testing.T) {
	msgs, system := anthropicMessages(sampleConversation())

	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].Text)

	// user, assistant(tool_use x2), user(tool_result x2), assistant
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 2)
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "c1", msgs[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "assistant", string(msgs[3].Role))
}

func TestOpenAIMessages(t *testing.T) {
	msgs, err := openAIMessages(sampleConversation())
	require.NoError(t, err)
	require.Len(t, msgs, 6)

	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 2)
	fn := msgs[2].OfAssistant.ToolCalls[0].OfFunction
	require.NotNil(t, fn)
	assert.Equal(t, "c1", fn.ID)
	assert.JSONEq(t, `{"date_str":"2025-06-01"}`, fn.Function.Arguments)

	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)

	_, err = openAIMessages([]conversation.Message{{Role: "bogus"}})
	assert.Error(t, err)
}

func TestOllamaMessages(t *testing.T) {
	msgs := ollamaMessages(sampleConversation())
	require.Len(t, msgs, 6)
	assert.Equal(t, "system", msgs[0].Role)
	require.Len(t, msgs[2].ToolCalls, 2)
	assert.Equal(t, "list_events", msgs[2].ToolCalls[1].Function.Name)
	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "list_events", msgs[3].ToolName)
	assert.Equal(t, "No events found for 2025-06-01. You are free.", msgs[3].Content)
	assert.Empty(t, msgs[1].ToolName)
}
