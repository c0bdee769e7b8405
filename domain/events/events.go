package events

import "spinningrats/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserLoggedIn       EventType = "user_logged_in"
	EventTypeUserLoggedOut      EventType = "user_logged_out"
	EventTypeHighscoreChanged   EventType = "highscore_changed"
	EventTypeViewerCountChanged EventType = "viewer_count_changed"
	EventTypeLeaderboardUpdated EventType = "leaderboard_updated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserLoggedInEvent is emitted when a session begins
type UserLoggedInEvent struct {
	DiscordID   string `json:"discordId"`
	DisplayName string `json:"displayName"`
	FirstLogin  bool   `json:"firstLogin"`
}

func (e UserLoggedInEvent) Type() EventType {
	return EventTypeUserLoggedIn
}

// UserLoggedOutEvent is emitted when a session ends
type UserLoggedOutEvent struct {
	DiscordID    string `json:"discordId"`
	TotalMinutes int64  `json:"totalMinutes"`
}

func (e UserLoggedOutEvent) Type() EventType {
	return EventTypeUserLoggedOut
}

// HighscoreChangedEvent is emitted on a new daily high or a daily reset
type HighscoreChangedEvent struct {
	Score int64 `json:"score"`
	Reset bool  `json:"reset"`
}

func (e HighscoreChangedEvent) Type() EventType {
	return EventTypeHighscoreChanged
}

// ViewerCountChangedEvent is emitted whenever a realtime client connects or leaves
type ViewerCountChangedEvent struct {
	ActiveViewers int64 `json:"activeViewers"`
}

func (e ViewerCountChangedEvent) Type() EventType {
	return EventTypeViewerCountChanged
}

// LeaderboardUpdatedEvent carries a freshly ranked leaderboard
type LeaderboardUpdatedEvent struct {
	Entries []entities.LeaderboardEntry `json:"entries"`
}

func (e LeaderboardUpdatedEvent) Type() EventType {
	return EventTypeLeaderboardUpdated
}
