package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestIsStaleReference(t *testing.T) {
	restErr := func(code int) error {
		return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: code, Message: "nope"}}
	}

	tests := []struct {
		name  string
		err   error
		stale bool
	}{
		{"unknown message", restErr(discordgo.ErrCodeUnknownMessage), true},
		{"unknown channel", restErr(discordgo.ErrCodeUnknownChannel), true},
		{"wrapped unknown message", fmt.Errorf("edit leaderboard: %w", restErr(discordgo.ErrCodeUnknownMessage)), true},
		{"missing permissions", restErr(discordgo.ErrCodeMissingPermissions), false},
		{"rest error without body", &discordgo.RESTError{}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stale, IsStaleReference(tt.err))
		})
	}
}

func TestBotError(t *testing.T) {
	cause := errors.New("discord down")
	err := NewSystemError(cause, "failed to post leaderboard")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to post leaderboard: discord down", err.Error())
	assert.True(t, err.Ephemeral)

	userErr := NewUserError("No such rat", "user lookup missed")
	assert.Equal(t, "user lookup missed", userErr.Error())
	assert.Nil(t, userErr.Unwrap())
}
