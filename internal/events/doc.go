// Package events defines the typed event stream produced by an orchestration
// run and the sinks that consume it.
//
// Every event serializes as a single JSON object with "type" and "content"
// fields; history_append events also carry the appended message in "data".
// NDJSONWriter writes one object per line and flushes immediately, so web
// clients can render progress before the terminal answer or error arrives.
package events
