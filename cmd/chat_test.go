package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/events"
)

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestTerminalRenderer(t *testing.T) {
	disableColor(t)

	tests := []struct {
		name    string
		event   events.Event
		verbose bool
		want    string
	}{
		{name: "status", event: events.Status("Thinking..."), want: "… Thinking...\n"},
		{
			name:  "tool call",
			event: events.Log("list_events", map[string]any{"date_str": "2025-06-02"}),
			want:  "➤ list_events {\"date_str\":\"2025-06-02\"}\n",
		},
		{name: "tool result", event: events.Log("No events\nfound", nil), want: "  No events found\n"},
		{name: "answer", event: events.Answer("You are free."), want: "\nYou are free.\n\n"},
		{name: "error", event: events.Error("model unavailable"), want: "✗ model unavailable\n"},
		{name: "history hidden", event: events.HistoryAppend("user", conversation.User("hi")), want: ""},
		{
			name:    "history verbose",
			event:   events.HistoryAppend("user", conversation.User("hi")),
			verbose: true,
			want:    "  [user] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := &terminalRenderer{w: &buf, verbose: tt.verbose}

			assert.NoError(t, r.Emit(tt.event))
			if tt.verbose {
				assert.True(t, strings.HasPrefix(buf.String(), tt.want), buf.String())
				assert.Contains(t, buf.String(), `"hi"`)
				return
			}
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{name: "short", input: "hello", width: 10, want: "hello"},
		{name: "exact", input: "hello", width: 5, want: "hello"},
		{name: "long", input: "hello world", width: 8, want: "hello..."},
		{name: "newlines", input: "a\nb", width: 10, want: "a b"},
		{name: "multibyte", input: "ääääää", width: 5, want: "ää..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.input, tt.width))
		})
	}
}
