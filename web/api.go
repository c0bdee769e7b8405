package web

import (
	"net/http"
)

// handleState returns the snapshot for the requesting user
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var discordID string
	if user := sessionUser(s.sessions, r); user != nil {
		discordID = user.DiscordID
	}
	respondWithJSON(w, http.StatusOK, s.game.Snapshot(r.Context(), discordID))
}
