package testutil

import (
	"time"

	"spinningrats/domain/entities"
)

// CreateTestUser creates an offline user with the given total
func CreateTestUser(discordID, name string, totalMinutes int64, firstSeen time.Time) *entities.RatUser {
	return &entities.RatUser{
		DiscordID:    discordID,
		Name:         name,
		TotalMinutes: totalMinutes,
		FirstSeenAt:  firstSeen,
	}
}

// CreateTestState creates a state holding the given users
func CreateTestState(today string, users ...*entities.RatUser) *entities.GameState {
	state := entities.NewGameState(today)
	for _, u := range users {
		state.Users[u.DiscordID] = u
	}
	return state
}
