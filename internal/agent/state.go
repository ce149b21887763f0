package agent

import (
	"errors"

	"github.com/teemow/mahakaal/internal/conversation"
)

// State is a node of the orchestration state machine.
type State string

const (
	StateAwaitingModel    State = "awaiting_model"
	StateDispatchingTools State = "dispatching_tools"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether the machine has an edge from s to next.
// A model call leaves AwaitingModel for DispatchingTools, Done or Failed.
// A finished tool turn returns to AwaitingModel, and an interrupted one fails.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateAwaitingModel:
		return next == StateDispatchingTools || next == StateDone || next == StateFailed
	case StateDispatchingTools:
		return next == StateAwaitingModel || next == StateFailed
	default:
		return false
	}
}

// ErrRoundLimit is the Result error when the model keeps requesting tools
// beyond the configured number of rounds.
var ErrRoundLimit = errors.New("tool round limit exceeded")

// Result describes a finished run.
type Result struct {
	// State is StateDone or StateFailed.
	State State
	// Conversation holds every message of the run, starting with the system
	// prompt. Each assistant tool request is followed by one tool message per
	// call.
	Conversation []conversation.Message
	// Rounds is the number of model invocations.
	Rounds int
	// Answer is the final text when State is StateDone.
	Answer string
	// Err is set when State is StateFailed.
	Err error

	appendedFrom int
}

// Appended returns the messages added during the run, after the system
// prompt and the caller's history.
func (r Result) Appended() []conversation.Message {
	if r.appendedFrom >= len(r.Conversation) {
		return nil
	}
	out := make([]conversation.Message, len(r.Conversation)-r.appendedFrom)
	copy(out, r.Conversation[r.appendedFrom:])
	return out
}
