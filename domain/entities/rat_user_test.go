package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatUser_Flush(t *testing.T) {
	t.Parallel()
	start := time.UnixMilli(0)

	tests := []struct {
		name         string
		elapsed      time.Duration
		wantCredited int64
	}{
		{name: "under a minute", elapsed: 59 * time.Second, wantCredited: 0},
		{name: "exactly one minute", elapsed: time.Minute, wantCredited: 1},
		{name: "partial minute dropped", elapsed: 125 * time.Second, wantCredited: 2},
		{name: "clock went backwards", elapsed: -5 * time.Minute, wantCredited: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user := NewRatUser("1", "rat", start)
			now := start.Add(tt.elapsed)

			credited := user.Flush(now)

			assert.Equal(t, tt.wantCredited, credited)
			assert.Equal(t, tt.wantCredited, user.TotalMinutes)
			require.NotNil(t, user.SessionStartedAt)
			assert.Equal(t, now, *user.SessionStartedAt)
		})
	}
}

func TestRatUser_EndSessionAndClone(t *testing.T) {
	t.Parallel()
	start := time.UnixMilli(0)
	user := NewRatUser("1", "rat", start)

	clone := user.Clone()
	credited := user.EndSession(start.Add(3 * time.Minute))

	assert.Equal(t, int64(3), credited)
	assert.False(t, user.IsOnline)
	assert.Nil(t, user.SessionStartedAt)
	assert.Equal(t, int64(0), user.Flush(start.Add(time.Hour)))

	assert.True(t, clone.IsOnline)
	require.NotNil(t, clone.SessionStartedAt)
	assert.Equal(t, start, *clone.SessionStartedAt)
}

func TestLocalDate(t *testing.T) {
	t.Parallel()
	instant := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "Mon Jan 01 2024", LocalDate(instant, time.UTC))
	assert.Equal(t, "Tue Jan 02 2024", LocalDate(instant, time.FixedZone("UTC+2", 2*60*60)))
}

func TestGameState_ResetDaily(t *testing.T) {
	t.Parallel()
	state := NewGameState("Mon Jan 01 2024")
	state.DailyHighscore = 70

	assert.False(t, state.NeedsReset("Mon Jan 01 2024"))
	assert.True(t, state.NeedsReset("Tue Jan 02 2024"))

	state.ResetDaily("Tue Jan 02 2024")
	assert.Equal(t, int64(0), state.DailyHighscore)
	assert.False(t, state.NeedsReset("Tue Jan 02 2024"))
}

func TestLoginNotification_Content(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "🧀 **Squeaky** joined the rat zone.", NewLoginNotification("Squeaky", true).Content())
	returning := NewLoginNotification("Squeaky", false)
	assert.Equal(t, NotificationReturningLogin, returning.Kind)
	assert.Equal(t, "🐀 **Squeaky** is back in the rat zone.", returning.Content())
}
