// Package conversation defines the chat messages exchanged between the user,
// the language model and the calendar tools, and the append-only conversation
// that one orchestration run owns.
//
// Messages encode to and decode from the chat-completions JSON format used by
// the web client, so the history a client sends back to /chat round-trips
// through these types unchanged.
package conversation
