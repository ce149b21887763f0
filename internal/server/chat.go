package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/events"
	"github.com/teemow/mahakaal/internal/logging"
	"github.com/teemow/mahakaal/internal/session"
)

// maxChatBody bounds the JSON body of POST /chat.
const maxChatBody = 4 << 20

// onlineMessage is returned by GET /.
const onlineMessage = "Mahakaal Agent is Online. Time flows."

type chatRequest struct {
	Messages  []conversation.Message `json:"messages"`
	SessionID *int64                 `json:"session_id,omitempty"`
}

func (req chatRequest) validate() error {
	if len(req.Messages) == 0 {
		return errors.New("messages must not be empty")
	}
	for i, m := range req.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

type chatHandlers struct {
	sc     *ServerContext
	logger *slog.Logger
}

func (h *chatHandlers) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": onlineMessage})
}

// chat runs one agent request and streams its events as NDJSON. When a
// session id is given, the newest user message and every message the run
// appended are stored once the run ends.
func (h *chatHandlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	a := h.sc.Agent()
	logger := h.logger

	var sessionID int64
	if req.SessionID != nil {
		store := h.sc.Sessions()
		if store == nil {
			writeError(w, http.StatusServiceUnavailable, "chat sessions are not enabled")
			return
		}
		sessionID = *req.SessionID
		if _, err := store.Get(ctx, sessionID); err != nil {
			writeStoreError(w, err)
			return
		}
		a = a.ForSession(sessionID)
		logger = logging.WithSession(logger, sessionID)
	}

	w.Header().Set("Content-Type", events.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics := h.sc.Metrics()
	metrics.StreamOpened(ctx)
	defer metrics.StreamClosed(context.WithoutCancel(ctx))

	stream := events.NewNDJSONWriter(w)
	res := a.Run(ctx, req.Messages, stream)
	stream.Close()

	logger.Debug("chat stream finished",
		slog.String("state", string(res.State)),
		slog.Int("events", stream.Written()),
	)

	if sessionID == 0 {
		return
	}

	var toStore []conversation.Message
	if last := req.Messages[len(req.Messages)-1]; last.Role == conversation.RoleUser {
		toStore = append(toStore, last)
	}
	toStore = append(toStore, res.Appended()...)

	// The client may be gone; the finished turn is still stored.
	if err := h.sc.Sessions().AppendMessages(context.WithoutCancel(ctx), sessionID, toStore...); err != nil {
		logger.Error("failed to store chat turn", logging.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrEmptyTitle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
