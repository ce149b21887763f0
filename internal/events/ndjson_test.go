package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mahakaal/internal/conversation"
)

func TestNDJSONWriter_OneLinePerEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewNDJSONWriter(rec)

	require.NoError(t, w.Emit(Status("Thinking...")))
	require.NoError(t, w.Emit(HistoryAppend("Tool result", conversation.ToolResult("c1", "list_events", "No events found for 2025-06-02. You are free."))))
	require.NoError(t, w.Emit(Log("Using Skill: list_events", map[string]any{"date_str": "2025-06-02"})))
	require.NoError(t, w.Emit(Answer("You are free tomorrow.")))

	assert.True(t, rec.Flushed, "writer must flush the response")
	assert.Equal(t, 4, w.Written())

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []map[string]any
	for scanner.Scan() {
		var obj map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &obj))
		lines = append(lines, obj)
	}
	require.Len(t, lines, 4)

	assert.Equal(t, "status", lines[0]["type"])
	assert.Equal(t, "Thinking...", lines[0]["content"])
	assert.NotContains(t, lines[0], "data")

	assert.Equal(t, "history_append", lines[1]["type"])
	data := lines[1]["data"].(map[string]any)
	assert.Equal(t, "tool", data["role"])
	assert.Equal(t, "c1", data["tool_call_id"])
	assert.Equal(t, "list_events", data["name"])

	assert.Equal(t, "log", lines[2]["type"])
	assert.Equal(t, map[string]any{"date_str": "2025-06-02"}, lines[2]["data"])

	assert.Equal(t, "answer", lines[3]["type"])
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("broken pipe")
}

func TestNDJSONWriter_StopsAfterWriteFailure(t *testing.T) {
	fw := &failingWriter{}
	w := NewNDJSONWriter(fw)

	assert.Error(t, w.Emit(Status("Thinking...")))
	assert.ErrorIs(t, w.Emit(Answer("late")), ErrClosed)
	assert.Equal(t, 1, fw.calls, "no writes after the first failure")
	assert.Equal(t, 0, w.Written())
}

func TestNDJSONWriter_Close(t *testing.T) {
	var sb strings.Builder
	w := NewNDJSONWriter(&sb)
	w.Close()

	assert.ErrorIs(t, w.Emit(Status("Thinking...")), ErrClosed)
	assert.Empty(t, sb.String())
}

func TestEvent_IsTerminal(t *testing.T) {
	tests := []struct {
		event Event
		want  bool
	}{
		{Status("x"), false},
		{Log("x", nil), false},
		{HistoryAppend("x", conversation.User("hi")), false},
		{Answer("x"), true},
		{Error("x"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.IsTerminal())
		})
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Emit(Status("a"))
	_ = r.Emit(Answer("b"))

	assert.Equal(t, []Type{TypeStatus, TypeAnswer}, r.Types())
	assert.Len(t, r.Events(), 2)
}
