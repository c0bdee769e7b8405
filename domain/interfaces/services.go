package interfaces

import (
	"context"

	"spinningrats/domain/entities"
)

// SessionAccountingService tracks login sessions and credits rat minutes
type SessionAccountingService interface {
	// BeginSession starts (or refreshes) a session and reports whether it was the user's first ever
	BeginSession(ctx context.Context, discordID, displayName string) (firstLogin bool, err error)

	// FlushSession credits minutes elapsed since the last flush and returns the new total
	FlushSession(ctx context.Context, discordID string) (int64, error)

	// EndSession flushes the session and marks the user offline
	EndSession(ctx context.Context, discordID string) (int64, error)

	// FlushAll flushes every online user and returns how many were flushed
	FlushAll(ctx context.Context) int

	// GetUser returns a copy of a user's record
	GetUser(ctx context.Context, discordID string) (*entities.RatUser, error)
}

// LeaderboardService produces ranked views of the game state
type LeaderboardService interface {
	// Leaderboard returns the top entries; limit <= 0 uses the configured size
	Leaderboard(ctx context.Context, limit int) []entities.LeaderboardEntry

	// Snapshot returns everything needed to render the page for a user (empty id for anonymous)
	Snapshot(ctx context.Context, discordID string) *entities.Snapshot

	// BroadcastLeaderboard publishes the current leaderboard to observers
	BroadcastLeaderboard(ctx context.Context)
}

// HighscoreService tracks the daily highscore
type HighscoreService interface {
	// CurrentHighscore returns today's highscore, resetting it first on a new day
	CurrentHighscore(ctx context.Context) int64

	// SubmitScore records a score and reports whether it became the new daily highscore
	SubmitScore(ctx context.Context, score int64) (bool, error)

	// RolloverIfNeeded resets the highscore if the day changed and reports whether it did
	RolloverIfNeeded(ctx context.Context) bool
}

// PresenceService counts connected realtime viewers
type PresenceService interface {
	ViewerConnected(ctx context.Context) int64
	ViewerDisconnected(ctx context.Context) int64
	ActiveViewers(ctx context.Context) int64
}

// BotSettingsService stores the handle of the bot's leaderboard message
type BotSettingsService interface {
	GetBotSettings(ctx context.Context) entities.BotSettings
	SetLeaderboardMessage(ctx context.Context, channelID, messageID string)
	ClearLeaderboardMessage(ctx context.Context)
}

// Notifier sends best-effort login announcements; it never blocks the caller
type Notifier interface {
	Notify(notification entities.LoginNotification)
}
