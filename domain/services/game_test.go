package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"
	"spinningrats/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type testGame struct {
	game  *Game
	store *testhelpers.MemoryStateStore
	pub   *testhelpers.RecordingPublisher
	clock *testhelpers.FakeClock
}

func newTestGame(t *testing.T, state *entities.GameState) *testGame {
	t.Helper()
	store := testhelpers.NewMemoryStateStore(state)
	pub := &testhelpers.RecordingPublisher{}
	clock := testhelpers.NewFakeClock(testStart)

	game, err := LoadGame(context.Background(), store, pub, GameConfig{
		Location: time.UTC,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	return &testGame{game: game, store: store, pub: pub, clock: clock}
}

func TestLoadGame(t *testing.T) {
	t.Parallel()

	t.Run("empty store yields fresh state", func(t *testing.T) {
		t.Parallel()
		tg := newTestGame(t, nil)

		assert.Equal(t, int64(0), tg.game.CurrentHighscore(context.Background()))
		assert.Equal(t, int64(0), tg.game.ActiveViewers(context.Background()))
		assert.Empty(t, tg.pub.Events())
		assert.Equal(t, 0, tg.store.Saves())
	})

	t.Run("online users are closed without credit", func(t *testing.T) {
		t.Parallel()
		state := entities.NewGameState(entities.LocalDate(testStart, time.UTC))
		user := entities.NewRatUser("111", "alice", testStart.Add(-3*time.Hour))
		user.TotalMinutes = 10
		state.Users["111"] = user
		state.ActiveViewers = 7

		tg := newTestGame(t, state)

		got, err := tg.game.GetUser(context.Background(), "111")
		require.NoError(t, err)
		assert.False(t, got.IsOnline)
		assert.Nil(t, got.SessionStartedAt)
		assert.Equal(t, int64(10), got.TotalMinutes)
		assert.Equal(t, int64(0), tg.game.ActiveViewers(context.Background()))
	})

	t.Run("stale day is reset on load", func(t *testing.T) {
		t.Parallel()
		state := entities.NewGameState("Mon Mar 04 2024")
		state.DailyHighscore = 500

		tg := newTestGame(t, state)

		assert.Equal(t, int64(0), tg.game.CurrentHighscore(context.Background()))
		resets := tg.pub.OfType(events.EventTypeHighscoreChanged)
		require.Len(t, resets, 1)
		assert.Equal(t, events.HighscoreChangedEvent{Score: 0, Reset: true}, resets[0])
		assert.Equal(t, "Tue Mar 05 2024", tg.store.Saved().LastReset)
	})

	t.Run("load error is returned", func(t *testing.T) {
		t.Parallel()
		store := new(testhelpers.MockGameStateStore)
		store.On("Load", mock.Anything).Return(nil, errors.New("disk on fire"))

		_, err := LoadGame(context.Background(), store, nil, GameConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk on fire")
		store.AssertExpectations(t)
	})
}

func TestGame_SaveFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	tg.store.SaveErr = errors.New("read-only filesystem")
	ctx := context.Background()

	updated, err := tg.game.SubmitScore(ctx, 40)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int64(40), tg.game.CurrentHighscore(ctx))
	assert.Equal(t, 1, tg.store.Saves())
}

func TestGame_PublishFailureDoesNotFailUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	pub := new(testhelpers.MockEventPublisher)
	pub.On("Publish", events.HighscoreChangedEvent{Score: 7}).Return(errors.New("bus closed")).Once()

	game, err := LoadGame(ctx, testhelpers.NewMemoryStateStore(nil), pub, GameConfig{
		Location: time.UTC,
		Now:      func() time.Time { return testStart },
	})
	require.NoError(t, err)

	updated, err := game.SubmitScore(ctx, 7)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int64(7), game.CurrentHighscore(ctx))
	pub.AssertExpectations(t)
}

func TestGame_Snapshot(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	_, err := tg.game.BeginSession(ctx, "111", "alice")
	require.NoError(t, err)
	tg.clock.Advance(3 * time.Minute)
	_, err = tg.game.FlushSession(ctx, "111")
	require.NoError(t, err)
	tg.game.ViewerConnected(ctx)
	_, err = tg.game.SubmitScore(ctx, 12)
	require.NoError(t, err)

	snapshot := tg.game.Snapshot(ctx, "111")
	require.Len(t, snapshot.Leaderboard, 1)
	assert.Equal(t, int64(12), snapshot.DailyHighscore)
	assert.Equal(t, int64(1), snapshot.ActiveViewers)
	require.NotNil(t, snapshot.CurrentUser)
	assert.Equal(t, int64(3), snapshot.CurrentUser.TotalMinutes)
	assert.True(t, snapshot.CurrentUser.IsOnline)

	anonymous := tg.game.Snapshot(ctx, "")
	assert.Nil(t, anonymous.CurrentUser)
	assert.Len(t, anonymous.Leaderboard, 1)
}

func TestGame_LeaderboardMessageHandle(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	initial := tg.game.GetBotSettings(ctx)
	assert.False(t, initial.HasLeaderboardMessage())

	tg.game.SetLeaderboardMessage(ctx, "chan", "msg")
	settings := tg.game.GetBotSettings(ctx)
	require.True(t, settings.HasLeaderboardMessage())
	assert.Equal(t, "msg", *settings.LeaderboardMessageID)
	assert.True(t, tg.store.Saved().BotSettings.HasLeaderboardMessage())

	tg.game.ClearLeaderboardMessage(ctx)
	cleared := tg.game.GetBotSettings(ctx)
	assert.False(t, cleared.HasLeaderboardMessage())
	assert.False(t, tg.store.Saved().BotSettings.HasLeaderboardMessage())

	// Clearing twice does not save again
	saves := tg.store.Saves()
	tg.game.ClearLeaderboardMessage(ctx)
	assert.Equal(t, saves, tg.store.Saves())
}
