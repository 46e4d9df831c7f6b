package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	oauthSessionName = "spotify_oauth"
	oauthStateKey    = "state"
	oauthStateTTL    = 5 * time.Minute
)

var errStateMismatch = errors.New("oauth state mismatch")

type contextKey struct{}

var userIDKey = contextKey{}

// saveOAuthState stores the CSRF state for the pending login in a signed
// cookie.
func saveOAuthState(store sessions.Store, w http.ResponseWriter, r *http.Request, state string) error {
	session, err := store.Get(r, oauthSessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[oauthStateKey] = state
	return session.Save(r, w)
}

// consumeOAuthState checks got against the stored state and clears the
// cookie. It fails when no login is pending.
func consumeOAuthState(store sessions.Store, w http.ResponseWriter, r *http.Request, got string) error {
	session, err := store.Get(r, oauthSessionName)
	if err != nil || session == nil {
		return errStateMismatch
	}
	want, _ := session.Values[oauthStateKey].(string)

	delete(session.Values, oauthStateKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	if want == "" || got != want {
		return errStateMismatch
	}
	return nil
}

// RequireSession rejects requests without a valid bearer session token and
// stores the user id in the request context.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		userID, err := h.sessions.Verify(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid.")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}
