// Package agent implements the tool-calling orchestration loop.
//
// One Run takes the caller's chat history, prepends the system prompt and
// alternates between asking the model and dispatching the tools it requests
// until the model answers in plain text. Every transition is reported to an
// events.Emitter in order, and every run ends with exactly one Answer or
// Error event unless the consumer went away first.
//
// The loop is an explicit state machine:
//
//	AwaitingModel --tool request--> DispatchingTools --all dispatched--> AwaitingModel
//	AwaitingModel --plain answer--> Done
//	AwaitingModel --model error or round limit--> Failed
//
// Tool calls within a turn run sequentially in the order the model listed
// them. A dispatch that has started always runs to completion even if the
// request context is canceled.
package agent
