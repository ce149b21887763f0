package events

import (
	"github.com/teemow/mahakaal/internal/conversation"
)

// Type discriminates the event union on the wire.
type Type string

// Event types.
const (
	TypeStatus        Type = "status"
	TypeHistoryAppend Type = "history_append"
	TypeLog           Type = "log"
	TypeAnswer        Type = "answer"
	TypeError         Type = "error"
)

// Event is the externally visible projection of one orchestration transition.
// Data is set for HistoryAppend (the appended message) and optionally for Log
// (the tool arguments).
type Event struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// IsTerminal reports whether the event ends a stream.
func (e Event) IsTerminal() bool {
	return e.Type == TypeAnswer || e.Type == TypeError
}

// Status announces that a model call is starting.
func Status(text string) Event {
	return Event{Type: TypeStatus, Content: text}
}

// HistoryAppend carries a message that was appended to the conversation.
func HistoryAppend(text string, msg conversation.Message) Event {
	return Event{Type: TypeHistoryAppend, Content: text, Data: msg}
}

// Log carries progress text and optional structured data.
func Log(text string, data any) Event {
	return Event{Type: TypeLog, Content: text, Data: data}
}

// Answer carries the final model answer.
func Answer(text string) Event {
	return Event{Type: TypeAnswer, Content: text}
}

// Error carries a fatal error for the run.
func Error(text string) Event {
	return Event{Type: TypeError, Content: text}
}

// Emitter receives events in chronological order. An error means the
// consumer is gone and no further events should be sent.
type Emitter interface {
	Emit(e Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e Event) error

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) error {
	return f(e)
}
