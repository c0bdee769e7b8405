package web

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"spinningrats/domain/entities"

	log "github.com/sirupsen/logrus"
)

func newOAuthState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// handleLogin starts the Discord OAuth flow
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newOAuthState()
	if err != nil {
		log.WithError(err).Error("Failed to generate oauth state")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// A cookie signed with an old secret just starts a fresh session
	session, _ := s.sessions.Get(r, sessionName)
	session.Values[sessionKeyState] = state
	if err := session.Save(r, w); err != nil {
		log.WithError(err).Error("Failed to save login session")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.Redirect(w, r, s.identity.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow and begins the user's session.
// Every failure lands back on the home page as an anonymous viewer.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)

	expected, _ := session.Values[sessionKeyState].(string)
	delete(session.Values, sessionKeyState)

	query := r.URL.Query()
	if expected == "" || query.Get("state") != expected {
		log.Warn("OAuth callback with mismatched state")
		_ = session.Save(r, w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if errParam := query.Get("error"); errParam != "" || query.Get("code") == "" {
		log.WithField("error", errParam).Info("OAuth login was not completed")
		_ = session.Save(r, w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	identity, err := s.identity.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		log.WithError(err).Warn("OAuth exchange failed")
		_ = session.Save(r, w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	firstLogin, err := s.game.BeginSession(r.Context(), identity.DiscordID, identity.DisplayName)
	if err != nil {
		log.WithError(err).WithField("discordId", identity.DiscordID).Warn("Failed to begin session")
		_ = session.Save(r, w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	session.Values[sessionKeyDiscordID] = identity.DiscordID
	session.Values[sessionKeyDisplayName] = identity.DisplayName
	if err := session.Save(r, w); err != nil {
		log.WithError(err).Error("Failed to save login session")
	}

	s.metrics.RecordLogin(firstLogin)
	if s.notifier != nil {
		s.notifier.Notify(entities.NewLoginNotification(identity.DisplayName, firstLogin))
	}

	log.WithFields(log.Fields{
		"discordId":  identity.DiscordID,
		"firstLogin": firstLogin,
	}).Info("User logged in")

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout ends the user's session and clears the cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := sessionUser(s.sessions, r); user != nil {
		if _, err := s.game.EndSession(r.Context(), user.DiscordID); err != nil {
			log.WithError(err).WithField("discordId", user.DiscordID).Warn("Failed to end session on logout")
		} else {
			s.metrics.RecordSessionEnded()
		}
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values = make(map[any]any)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.WithError(err).Warn("Failed to clear login session")
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
