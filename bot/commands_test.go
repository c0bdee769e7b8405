package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlashCommands(t *testing.T) {
	commands := slashCommands()
	require.Len(t, commands, 2)

	names := []string{commands[0].Name, commands[1].Name}
	assert.Equal(t, []string{commandLeaderboard, commandRatMinutes}, names)

	for _, cmd := range commands {
		assert.NotEmpty(t, cmd.Description)
		assert.LessOrEqual(t, len(cmd.Description), 100, "discord limits descriptions to 100 characters")
	}

	ratMinutes := commands[1]
	require.Len(t, ratMinutes.Options, 1)
	assert.False(t, ratMinutes.Options[0].Required)
}
