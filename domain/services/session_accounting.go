package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"

	log "github.com/sirupsen/logrus"
)

// BeginSession starts a session for a user handed over by the auth layer.
// An unseen user is created online; a known offline user goes online from
// now; a user already online keeps the running session. The display name
// is refreshed in every case.
func (g *Game) BeginSession(ctx context.Context, discordID, displayName string) (bool, error) {
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return false, ErrInvalidUser
	}

	firstLogin := false
	g.update(ctx, func(now time.Time) (bool, []events.Event) {
		user, exists := g.state.Users[discordID]
		switch {
		case !exists:
			user = entities.NewRatUser(discordID, displayName, now)
			g.state.Users[discordID] = user
			firstLogin = true
		case !user.IsOnline:
			user.StartSession(now)
			user.Name = displayName
		default:
			user.Name = displayName
		}

		return true, []events.Event{
			events.UserLoggedInEvent{
				DiscordID:   discordID,
				DisplayName: displayName,
				FirstLogin:  firstLogin,
			},
			g.leaderboardEventLocked(),
		}
	})

	log.WithFields(log.Fields{
		"discordId":  discordID,
		"name":       displayName,
		"firstLogin": firstLogin,
	}).Info("Session started")

	return firstLogin, nil
}

// FlushSession credits the whole minutes elapsed since the previous flush
// (or session start) and returns the user's new total.
func (g *Game) FlushSession(ctx context.Context, discordID string) (int64, error) {
	var (
		total int64
		found bool
	)
	g.update(ctx, func(now time.Time) (bool, []events.Event) {
		user, ok := g.state.Users[discordID]
		if !ok {
			return false, nil
		}
		found = true
		if !user.IsOnline {
			total = user.TotalMinutes
			return false, nil
		}

		credited := user.Flush(now)
		total = user.TotalMinutes
		if credited == 0 {
			// session start still moved forward
			return true, nil
		}
		return true, []events.Event{g.leaderboardEventLocked()}
	})

	if !found {
		return 0, fmt.Errorf("flush session %s: %w", discordID, ErrUserNotFound)
	}
	return total, nil
}

// EndSession flushes the user's session and marks them offline
func (g *Game) EndSession(ctx context.Context, discordID string) (int64, error) {
	var (
		total int64
		found bool
		ended bool
	)
	g.update(ctx, func(now time.Time) (bool, []events.Event) {
		user, ok := g.state.Users[discordID]
		if !ok {
			return false, nil
		}
		found = true
		if !user.IsOnline {
			total = user.TotalMinutes
			return false, nil
		}

		credited := user.EndSession(now)
		total = user.TotalMinutes
		ended = true

		evts := []events.Event{events.UserLoggedOutEvent{DiscordID: discordID, TotalMinutes: total}}
		if credited > 0 {
			evts = append(evts, g.leaderboardEventLocked())
		}
		return true, evts
	})

	if !found {
		return 0, fmt.Errorf("end session %s: %w", discordID, ErrUserNotFound)
	}
	if ended {
		log.WithFields(log.Fields{
			"discordId":    discordID,
			"totalMinutes": total,
		}).Info("Session ended")
	}
	return total, nil
}

// FlushAll flushes every online user with a single save
func (g *Game) FlushAll(ctx context.Context) int {
	flushed := 0
	var credited int64
	g.update(ctx, func(now time.Time) (bool, []events.Event) {
		for _, user := range g.state.Users {
			if !user.IsOnline {
				continue
			}
			credited += user.Flush(now)
			flushed++
		}
		return flushed > 0, nil
	})

	if flushed > 0 {
		log.WithFields(log.Fields{
			"onlineUsers":     flushed,
			"creditedMinutes": credited,
		}).Debug("Flushed online sessions")
	}
	return flushed
}
