package services

import (
	"context"
	"testing"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_SubmitScore(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	steps := []struct {
		score       int64
		wantUpdated bool
		wantHigh    int64
	}{
		{score: 50, wantUpdated: true, wantHigh: 50},
		{score: 30, wantUpdated: false, wantHigh: 50},
		{score: 50, wantUpdated: false, wantHigh: 50},
		{score: 80, wantUpdated: true, wantHigh: 80},
	}

	for _, step := range steps {
		tg.pub.Reset()
		updated, err := tg.game.SubmitScore(ctx, step.score)
		require.NoError(t, err)
		assert.Equal(t, step.wantUpdated, updated, "score %d", step.score)
		assert.Equal(t, step.wantHigh, tg.game.CurrentHighscore(ctx))

		changes := tg.pub.OfType(events.EventTypeHighscoreChanged)
		if step.wantUpdated {
			require.Len(t, changes, 1)
			assert.Equal(t, events.HighscoreChangedEvent{Score: step.score}, changes[0])
		} else {
			assert.Empty(t, changes)
		}
	}

	assert.Equal(t, int64(80), tg.store.Saved().DailyHighscore)
}

func TestGame_SubmitScore_Invalid(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	for _, score := range []int64{-1, DefaultMaxScore + 1} {
		updated, err := tg.game.SubmitScore(ctx, score)
		assert.ErrorIs(t, err, ErrInvalidScore)
		assert.False(t, updated)
	}
	assert.Equal(t, int64(0), tg.game.CurrentHighscore(ctx))
	assert.Empty(t, tg.pub.Events())

	updated, err := tg.game.SubmitScore(ctx, DefaultMaxScore)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestGame_DailyReset(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	tg.clock.Set(time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC))
	_, err := tg.game.SubmitScore(ctx, 100)
	require.NoError(t, err)
	tg.pub.Reset()

	tg.clock.Set(time.Date(2024, 3, 6, 0, 1, 0, 0, time.UTC))
	assert.Equal(t, int64(0), tg.game.CurrentHighscore(ctx))
	assert.Equal(t, int64(0), tg.game.CurrentHighscore(ctx))
	assert.False(t, tg.game.RolloverIfNeeded(ctx))

	resets := tg.pub.OfType(events.EventTypeHighscoreChanged)
	require.Len(t, resets, 1)
	assert.Equal(t, events.HighscoreChangedEvent{Score: 0, Reset: true}, resets[0])
	assert.Equal(t, "Wed Mar 06 2024", tg.store.Saved().LastReset)

	// Any score counts again after the reset
	updated, err := tg.game.SubmitScore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestGame_DailyReset_UsesConfiguredZone(t *testing.T) {
	t.Parallel()
	zone := time.FixedZone("UTC+10", 10*60*60)
	// 15:00 UTC is already the next day at UTC+10
	clockTime := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	state := entities.NewGameState(entities.LocalDate(clockTime, time.UTC))
	state.DailyHighscore = 9

	tg := newTestGame(t, state)
	game := newGame(tg.store, tg.pub, GameConfig{Location: zone, Now: func() time.Time { return clockTime }})
	game.state = state

	assert.True(t, game.RolloverIfNeeded(context.Background()))
	assert.Equal(t, "Wed Mar 06 2024", state.LastReset)
}
