package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"
	"spinningrats/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultLeaderboardSize is used when no positive size is configured
	DefaultLeaderboardSize = 10

	// DefaultMaxScore caps accepted score submissions
	DefaultMaxScore = 1_000_000

	persistTimeout = 5 * time.Second
)

// GameConfig holds the tunables of the game service
type GameConfig struct {
	Location        *time.Location
	LeaderboardSize int
	MaxScore        int64
	Now             func() time.Time
}

// Game owns the process-wide game state. Every mutation and the save that
// follows it happen under mu, so saves are applied in mutation order.
// Events are published after mu is released but while pubMu is held,
// which keeps observers seeing them in mutation order.
type Game struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	state     *entities.GameState
	store     interfaces.GameStateStore
	publisher interfaces.EventPublisher

	now             func() time.Time
	location        *time.Location
	leaderboardSize int
	maxScore        int64
}

// LoadGame loads the persisted state and returns a game service owning it.
// Users left online by a previous process are marked offline, the viewer
// count starts at zero and the daily highscore is rolled over if needed.
func LoadGame(ctx context.Context, store interfaces.GameStateStore, publisher interfaces.EventPublisher, cfg GameConfig) (*Game, error) {
	g := newGame(store, publisher, cfg)

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	if state == nil {
		state = entities.NewGameState(g.today())
	}
	if state.Users == nil {
		state.Users = make(map[string]*entities.RatUser)
	}

	resumed := 0
	for _, u := range state.Users {
		if u.IsOnline {
			u.GoOffline()
			resumed++
		}
	}
	state.ActiveViewers = 0
	g.state = state

	log.WithFields(log.Fields{
		"users":          len(state.Users),
		"closedSessions": resumed,
		"dailyHighscore": state.DailyHighscore,
		"lastReset":      state.LastReset,
	}).Info("Game state loaded")

	g.RolloverIfNeeded(ctx)
	return g, nil
}

func newGame(store interfaces.GameStateStore, publisher interfaces.EventPublisher, cfg GameConfig) *Game {
	g := &Game{
		store:           store,
		publisher:       publisher,
		now:             cfg.Now,
		location:        cfg.Location,
		leaderboardSize: cfg.LeaderboardSize,
		maxScore:        cfg.MaxScore,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.location == nil {
		g.location = time.Local
	}
	if g.leaderboardSize <= 0 {
		g.leaderboardSize = DefaultLeaderboardSize
	}
	if g.maxScore <= 0 {
		g.maxScore = DefaultMaxScore
	}
	return g
}

// update runs fn under the state lock, persists when fn asks for it and
// publishes the returned events in order.
func (g *Game) update(ctx context.Context, fn func(now time.Time) (persist bool, evts []events.Event)) {
	g.mu.Lock()
	now := g.now()
	evts := g.rolloverLocked(ctx, now)
	persist, more := fn(now)
	evts = append(evts, more...)
	if persist {
		g.persistLocked(ctx)
	}
	g.pubMu.Lock()
	g.mu.Unlock()

	defer g.pubMu.Unlock()
	g.publish(evts)
}

// read runs fn under the state lock; a pending daily rollover is applied first
func (g *Game) read(ctx context.Context, fn func(now time.Time)) {
	g.update(ctx, func(now time.Time) (bool, []events.Event) {
		fn(now)
		return false, nil
	})
}

// persistLocked saves the state. Failures are logged and swallowed; the
// in-memory state stays authoritative until the next successful save.
func (g *Game) persistLocked(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	g.state.SchemaVersion = entities.CurrentSchemaVersion
	if err := g.store.Save(saveCtx, g.state); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"users": len(g.state.Users),
		}).Warn("Failed to persist game state")
	}
}

func (g *Game) publish(evts []events.Event) {
	if g.publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := g.publisher.Publish(evt); err != nil {
			log.WithError(err).WithField("eventType", evt.Type()).Error("Failed to publish event")
		}
	}
}

func (g *Game) today() string {
	return entities.LocalDate(g.now(), g.location)
}

// GetUser returns a copy of a user's record
func (g *Game) GetUser(ctx context.Context, discordID string) (*entities.RatUser, error) {
	var user *entities.RatUser
	g.read(ctx, func(time.Time) {
		if u, ok := g.state.Users[discordID]; ok {
			user = u.Clone()
		}
	})
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", discordID, ErrUserNotFound)
	}
	return user, nil
}

// Snapshot returns the leaderboard, counters and the given user's record
func (g *Game) Snapshot(ctx context.Context, discordID string) *entities.Snapshot {
	snapshot := &entities.Snapshot{}
	g.read(ctx, func(time.Time) {
		snapshot.Leaderboard = RankUsers(g.state.Users, g.leaderboardSize)
		snapshot.DailyHighscore = g.state.DailyHighscore
		snapshot.ActiveViewers = g.state.ActiveViewers
		if u, ok := g.state.Users[discordID]; ok && discordID != "" {
			snapshot.CurrentUser = &entities.CurrentUser{
				DiscordID:    u.DiscordID,
				Name:         u.Name,
				TotalMinutes: u.TotalMinutes,
				IsOnline:     u.IsOnline,
			}
		}
	})
	return snapshot
}

// GetBotSettings returns a copy of the bot settings
func (g *Game) GetBotSettings(ctx context.Context) entities.BotSettings {
	var settings entities.BotSettings
	g.read(ctx, func(time.Time) {
		settings = g.state.Clone().BotSettings
	})
	return settings
}

// SetLeaderboardMessage caches the bot's leaderboard message handle
func (g *Game) SetLeaderboardMessage(ctx context.Context, channelID, messageID string) {
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		g.state.BotSettings.SetLeaderboardMessage(channelID, messageID)
		return true, nil
	})
}

// ClearLeaderboardMessage forgets the bot's leaderboard message handle
func (g *Game) ClearLeaderboardMessage(ctx context.Context) {
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		if !g.state.BotSettings.HasLeaderboardMessage() && g.state.BotSettings.LeaderboardChannelID == nil {
			return false, nil
		}
		g.state.BotSettings.ClearLeaderboardMessage()
		return true, nil
	})
}

// Shutdown credits every online user and persists the final state
func (g *Game) Shutdown(ctx context.Context) {
	flushed := g.FlushAll(ctx)
	log.WithField("flushedUsers", flushed).Info("Game state flushed for shutdown")
}
