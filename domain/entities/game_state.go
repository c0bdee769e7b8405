package entities

import "time"

// CurrentSchemaVersion is the version written by every save
const CurrentSchemaVersion = 2

// LocalDateLayout renders a date the way the daily reset key is stored, e.g. "Mon Jan 01 2024"
const LocalDateLayout = "Mon Jan 02 2006"

// GameState is the whole persisted document
type GameState struct {
	SchemaVersion  int
	Users          map[string]*RatUser
	DailyHighscore int64
	ActiveViewers  int64 // Runtime only; never trusted on load
	LastReset      string
	BotSettings    BotSettings
}

// BotSettings holds the handle of the leaderboard message the bot keeps editing
type BotSettings struct {
	LeaderboardChannelID *string
	LeaderboardMessageID *string
}

// HasLeaderboardMessage checks if a leaderboard message handle is cached
func (b *BotSettings) HasLeaderboardMessage() bool {
	return b.LeaderboardChannelID != nil && *b.LeaderboardChannelID != "" &&
		b.LeaderboardMessageID != nil && *b.LeaderboardMessageID != ""
}

// SetLeaderboardMessage caches a leaderboard message handle
func (b *BotSettings) SetLeaderboardMessage(channelID, messageID string) {
	b.LeaderboardChannelID = &channelID
	b.LeaderboardMessageID = &messageID
}

// ClearLeaderboardMessage drops the cached leaderboard message handle
func (b *BotSettings) ClearLeaderboardMessage() {
	b.LeaderboardChannelID = nil
	b.LeaderboardMessageID = nil
}

// LocalDate formats t as a daily reset key in loc
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LocalDateLayout)
}

// NewGameState returns the default state used when nothing could be loaded
func NewGameState(today string) *GameState {
	return &GameState{
		SchemaVersion: CurrentSchemaVersion,
		Users:         make(map[string]*RatUser),
		LastReset:     today,
	}
}

// NeedsReset checks if the daily highscore belongs to a day other than today
func (g *GameState) NeedsReset(today string) bool {
	return g.LastReset != today
}

// ResetDaily zeroes the daily highscore and stamps today
func (g *GameState) ResetDaily(today string) {
	g.DailyHighscore = 0
	g.LastReset = today
}

// OnlineUsers returns the users currently in a session
func (g *GameState) OnlineUsers() []*RatUser {
	online := make([]*RatUser, 0)
	for _, u := range g.Users {
		if u.IsOnline {
			online = append(online, u)
		}
	}
	return online
}

// Clone returns a deep copy safe to hand to a store or another goroutine
func (g *GameState) Clone() *GameState {
	c := &GameState{
		SchemaVersion:  g.SchemaVersion,
		Users:          make(map[string]*RatUser, len(g.Users)),
		DailyHighscore: g.DailyHighscore,
		ActiveViewers:  g.ActiveViewers,
		LastReset:      g.LastReset,
	}
	for id, u := range g.Users {
		c.Users[id] = u.Clone()
	}
	if g.BotSettings.LeaderboardChannelID != nil {
		channelID := *g.BotSettings.LeaderboardChannelID
		c.BotSettings.LeaderboardChannelID = &channelID
	}
	if g.BotSettings.LeaderboardMessageID != nil {
		messageID := *g.BotSettings.LeaderboardMessageID
		c.BotSettings.LeaderboardMessageID = &messageID
	}
	return c
}
