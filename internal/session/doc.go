// Package session persists chat sessions and their messages in SQLite.
//
// The store uses the pure Go driver modernc.org/sqlite, so no cgo toolchain
// is needed. Messages keep the fields of conversation.Message; tool calls are
// stored as their chat-completions JSON. Messages of a session are returned in
// insertion order.
package session
