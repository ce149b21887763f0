package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/session"
)

const maxSessionBody = 64 << 10

type titleRequest struct {
	Title string `json:"title"`
}

// sessionDetail is the GET /sessions/{id} payload.
type sessionDetail struct {
	*session.Session
	Messages []conversation.Message `json:"messages"`
}

type sessionHandlers struct {
	sc *ServerContext
}

// store returns the session store or answers 503 when persistence is off.
func (h *sessionHandlers) store(w http.ResponseWriter) *session.Store {
	store := h.sc.Sessions()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "chat sessions are not enabled")
	}
	return store
}

func (h *sessionHandlers) create(w http.ResponseWriter, r *http.Request) {
	store := h.store(w)
	if store == nil {
		return
	}

	var req titleRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	s, err := store.Create(r.Context(), req.Title)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *sessionHandlers) list(w http.ResponseWriter, r *http.Request) {
	store := h.store(w)
	if store == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := store.List(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *sessionHandlers) get(w http.ResponseWriter, r *http.Request) {
	store := h.store(w)
	if store == nil {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	s, err := store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	msgs, err := store.Messages(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, sessionDetail{Session: s, Messages: msgs})
}

func (h *sessionHandlers) rename(w http.ResponseWriter, r *http.Request) {
	store := h.store(w)
	if store == nil {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req titleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := store.Rename(r.Context(), id, req.Title)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *sessionHandlers) delete(w http.ResponseWriter, r *http.Request) {
	store := h.store(w)
	if store == nil {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
