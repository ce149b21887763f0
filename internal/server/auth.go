package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/mahakaal/internal/logging"
)

// stateTTL bounds how long a login URL stays usable.
const stateTTL = 10 * time.Minute

// oauthStates tracks the state values handed out by /auth/login so the
// callback can reject forged redirects.
type oauthStates struct {
	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

func newOAuthStates() *oauthStates {
	return &oauthStates{pending: make(map[string]time.Time), now: time.Now}
}

func (s *oauthStates) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, expires := range s.pending {
		if now.After(expires) {
			delete(s.pending, state)
		}
	}

	state := uuid.NewString()
	s.pending[state] = now.Add(stateTTL)
	return state
}

// consume reports whether state was issued and is unexpired. A state can be
// used once.
func (s *oauthStates) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.pending[state]
	if !ok {
		return false
	}
	delete(s.pending, state)
	return !s.now().After(expires)
}

type authHandlers struct {
	sc     *ServerContext
	states *oauthStates
	logger *slog.Logger
}

func (h *authHandlers) login(w http.ResponseWriter, _ *http.Request) {
	auth := h.sc.Auth()
	if auth == nil {
		writeError(w, http.StatusInternalServerError, "Google OAuth is not configured on the server.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": auth.LoginURL(h.states.issue())})
}

func (h *authHandlers) callback(w http.ResponseWriter, r *http.Request) {
	auth := h.sc.Auth()
	if auth == nil {
		writeError(w, http.StatusInternalServerError, "Google OAuth is not configured on the server.")
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "Authentication failed: "+e)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authentication failed: missing code")
		return
	}
	if !h.states.consume(q.Get("state")) {
		writeError(w, http.StatusBadRequest, "Authentication failed: invalid or expired state")
		return
	}

	if err := auth.Exchange(r.Context(), code); err != nil {
		h.logger.Warn("OAuth callback failed", logging.Err(err))
		writeError(w, http.StatusBadRequest, "Authentication failed: "+err.Error())
		return
	}

	h.logger.Info("Google Calendar connected")
	http.Redirect(w, r, h.sc.FrontendURL(), http.StatusFound)
}

func (h *authHandlers) status(w http.ResponseWriter, _ *http.Request) {
	authenticated := false
	if auth := h.sc.Auth(); auth != nil {
		authenticated = auth.Status()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}
