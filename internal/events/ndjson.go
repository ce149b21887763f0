package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ContentType is the media type of an NDJSON event stream.
const ContentType = "application/x-ndjson"

// ErrClosed is returned by Emit after the writer stopped accepting events.
var ErrClosed = errors.New("event stream closed")

// NDJSONWriter serializes events as one JSON object per line and flushes
// after every line. After the first write failure it refuses further events.
type NDJSONWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
	written int
}

// NewNDJSONWriter creates a writer over w. When w implements http.Flusher the
// writer flushes after each event.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	nw := &NDJSONWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		nw.flusher = f
	}
	return nw
}

// Emit writes one event line.
func (nw *NDJSONWriter) Emit(e Event) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	if nw.closed {
		return ErrClosed
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	line = append(line, '\n')

	if _, err := nw.w.Write(line); err != nil {
		nw.closed = true
		return fmt.Errorf("failed to write %s event: %w", e.Type, err)
	}
	if nw.flusher != nil {
		nw.flusher.Flush()
	}
	nw.written++
	return nil
}

// Close stops the writer. Further Emit calls return ErrClosed.
func (nw *NDJSONWriter) Close() {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.closed = true
}

// Written returns the number of events written so far.
func (nw *NDJSONWriter) Written() int {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return nw.written
}
