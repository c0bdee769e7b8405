package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spinningrats/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDataFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	cfg := config.NewTestConfig()
	cfg.DataFile = path
	config.SetTestConfig(cfg)
	t.Cleanup(config.ResetConfig)
	return path
}

func TestPrintLeaderboard(t *testing.T) {
	doc := `{
		"schemaVersion": 2,
		"users": {
			"a": {"name": "alice", "discordId": "a", "totalMinutes": 10, "isLoggedIn": true, "currentSessionStart": 1700000000000},
			"b": {"name": "bob", "discordId": "b", "totalMinutes": 1500},
			"c": {"name": "carol", "discordId": "c", "totalMinutes": 20},
			"z": {"name": "zero", "discordId": "z", "totalMinutes": 0}
		},
		"dailyHighscore": 0,
		"lastReset": "Mon Jan 01 2024"
	}`
	path := useDataFile(t, doc)

	var out bytes.Buffer
	require.NoError(t, PrintLeaderboard(context.Background(), &out, 2))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "RANK")
	assert.Contains(t, lines[1], "bob")
	assert.Contains(t, lines[1], "1,500")
	assert.Contains(t, lines[2], "carol")
	assert.NotContains(t, out.String(), "alice", "limit applies")
	assert.NotContains(t, out.String(), "zero")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(after), "printing must not rewrite the state file")
}

func TestPrintLeaderboard_Empty(t *testing.T) {
	useDataFile(t, "")

	var out bytes.Buffer
	require.NoError(t, PrintLeaderboard(context.Background(), &out, 0))
	assert.Equal(t, "No rats have spun yet.\n", out.String())
}

func TestImportJSON_RequiresDatabase(t *testing.T) {
	useDataFile(t, "")

	err := ImportJSON(context.Background(), "legacy.json")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
