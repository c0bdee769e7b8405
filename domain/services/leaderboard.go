package services

import (
	"context"
	"sort"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"
)

// RankUsers ranks users with at least one minute by total minutes,
// highest first, ties broken by Discord ID. It does not modify users.
// Presence is ignored: the ranking is all-time.
func RankUsers(users map[string]*entities.RatUser, limit int) []entities.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	ranked := make([]*entities.RatUser, 0, len(users))
	for _, u := range users {
		if u.HasMinutes() {
			ranked = append(ranked, u)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalMinutes != ranked[j].TotalMinutes {
			return ranked[i].TotalMinutes > ranked[j].TotalMinutes
		}
		return ranked[i].DiscordID < ranked[j].DiscordID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]entities.LeaderboardEntry, len(ranked))
	for i, u := range ranked {
		entries[i] = entities.LeaderboardEntry{
			Rank:      i + 1,
			DiscordID: u.DiscordID,
			Name:      u.Name,
			Minutes:   u.TotalMinutes,
		}
	}
	return entries
}

// Leaderboard returns the current top entries
func (g *Game) Leaderboard(ctx context.Context, limit int) []entities.LeaderboardEntry {
	if limit <= 0 {
		limit = g.leaderboardSize
	}
	var entries []entities.LeaderboardEntry
	g.read(ctx, func(time.Time) {
		entries = RankUsers(g.state.Users, limit)
	})
	return entries
}

// BroadcastLeaderboard publishes the current leaderboard
func (g *Game) BroadcastLeaderboard(ctx context.Context) {
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		return false, []events.Event{g.leaderboardEventLocked()}
	})
}

func (g *Game) leaderboardEventLocked() events.Event {
	return events.LeaderboardUpdatedEvent{Entries: RankUsers(g.state.Users, g.leaderboardSize)}
}
