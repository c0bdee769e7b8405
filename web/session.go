package web

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "rats_session"

	sessionKeyState       = "oauth_state"
	sessionKeyDiscordID   = "discord_id"
	sessionKeyDisplayName = "display_name"
)

// SessionUser is the identity stored in the login cookie
type SessionUser struct {
	DiscordID   string
	DisplayName string
}

// NewSessionStore creates the signed cookie store for login sessions
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionUser reads the logged-in identity, nil for anonymous requests
func sessionUser(store sessions.Store, r *http.Request) *SessionUser {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	id, _ := session.Values[sessionKeyDiscordID].(string)
	if id == "" {
		return nil
	}
	name, _ := session.Values[sessionKeyDisplayName].(string)
	return &SessionUser{DiscordID: id, DisplayName: name}
}
