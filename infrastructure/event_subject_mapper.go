package infrastructure

import (
	"fmt"

	"spinningrats/domain/events"
)

// EventSubjectMapper maps domain events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject returns the subject an event is mirrored to
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeUserLoggedIn:
		return "rats.users.logged_in"
	case events.EventTypeUserLoggedOut:
		return "rats.users.logged_out"
	case events.EventTypeHighscoreChanged:
		return "rats.highscore.changed"
	case events.EventTypeViewerCountChanged:
		return "rats.viewers.changed"
	case events.EventTypeLeaderboardUpdated:
		return "rats.leaderboard.updated"
	default:
		return fmt.Sprintf("rats.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns every subject the stream has to capture
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"rats.users.logged_in",
		"rats.users.logged_out",
		"rats.highscore.changed",
		"rats.viewers.changed",
		"rats.leaderboard.updated",
		"rats.unknown.>",
	}
}
