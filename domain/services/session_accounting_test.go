package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"spinningrats/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_BeginSession(t *testing.T) {
	t.Parallel()

	t.Run("first login creates an online user", func(t *testing.T) {
		t.Parallel()
		tg := newTestGame(t, nil)
		ctx := context.Background()

		first, err := tg.game.BeginSession(ctx, "111", "alice")
		require.NoError(t, err)
		assert.True(t, first)

		user, err := tg.game.GetUser(ctx, "111")
		require.NoError(t, err)
		assert.True(t, user.IsOnline)
		require.NotNil(t, user.SessionStartedAt)
		assert.Equal(t, testStart, *user.SessionStartedAt)
		assert.Equal(t, testStart, user.FirstSeenAt)
		assert.Equal(t, int64(0), user.TotalMinutes)

		evts := tg.pub.Events()
		require.Len(t, evts, 2)
		assert.Equal(t, events.UserLoggedInEvent{DiscordID: "111", DisplayName: "alice", FirstLogin: true}, evts[0])
		assert.Equal(t, events.EventTypeLeaderboardUpdated, evts[1].Type())
		assert.Equal(t, 1, tg.store.Saves())
	})

	t.Run("login while online keeps the running session", func(t *testing.T) {
		t.Parallel()
		tg := newTestGame(t, nil)
		ctx := context.Background()

		_, err := tg.game.BeginSession(ctx, "111", "alice")
		require.NoError(t, err)
		tg.clock.Advance(90 * time.Second)

		first, err := tg.game.BeginSession(ctx, "111", "alice2")
		require.NoError(t, err)
		assert.False(t, first)

		user, err := tg.game.GetUser(ctx, "111")
		require.NoError(t, err)
		assert.Equal(t, "alice2", user.Name)
		assert.Equal(t, testStart, *user.SessionStartedAt)
	})

	t.Run("returning login restarts the session", func(t *testing.T) {
		t.Parallel()
		tg := newTestGame(t, nil)
		ctx := context.Background()

		_, err := tg.game.BeginSession(ctx, "111", "alice")
		require.NoError(t, err)
		tg.clock.Advance(5 * time.Minute)
		_, err = tg.game.EndSession(ctx, "111")
		require.NoError(t, err)
		tg.clock.Advance(time.Hour)

		first, err := tg.game.BeginSession(ctx, "111", "alice")
		require.NoError(t, err)
		assert.False(t, first)

		user, err := tg.game.GetUser(ctx, "111")
		require.NoError(t, err)
		assert.True(t, user.IsOnline)
		assert.Equal(t, int64(5), user.TotalMinutes)
		assert.Equal(t, tg.clock.Now(), *user.SessionStartedAt)
		assert.Equal(t, testStart, user.FirstSeenAt)
	})

	t.Run("blank id is rejected", func(t *testing.T) {
		t.Parallel()
		tg := newTestGame(t, nil)

		_, err := tg.game.BeginSession(context.Background(), "  ", "ghost")
		assert.ErrorIs(t, err, ErrInvalidUser)
		assert.Empty(t, tg.pub.Events())
		assert.Equal(t, 0, tg.store.Saves())
	})
}

func TestGame_FlushSession(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	_, err := tg.game.BeginSession(ctx, "111", "alice")
	require.NoError(t, err)

	tg.clock.Set(testStart.Add(125000 * time.Millisecond))
	total, err := tg.game.FlushSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	tg.clock.Set(testStart.Add(185000 * time.Millisecond))
	total, err = tg.game.FlushSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	total, err = tg.game.EndSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	user, err := tg.game.GetUser(ctx, "111")
	require.NoError(t, err)
	assert.False(t, user.IsOnline)
	assert.Nil(t, user.SessionStartedAt)

	saved := tg.store.Saved().Users["111"]
	assert.Equal(t, int64(3), saved.TotalMinutes)
	assert.False(t, saved.IsOnline)

	// Flushing an offline user changes nothing
	tg.clock.Advance(time.Hour)
	total, err = tg.game.FlushSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestGame_FlushSession_UnknownUser(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)

	_, err := tg.game.FlushSession(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = tg.game.EndSession(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGame_FlushSession_ClockSkew(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	_, err := tg.game.BeginSession(ctx, "111", "alice")
	require.NoError(t, err)

	tg.clock.Set(testStart.Add(-10 * time.Minute))
	total, err := tg.game.FlushSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestGame_EndSession_Twice(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	_, err := tg.game.BeginSession(ctx, "111", "alice")
	require.NoError(t, err)
	tg.clock.Advance(2 * time.Minute)

	_, err = tg.game.EndSession(ctx, "111")
	require.NoError(t, err)
	tg.pub.Reset()
	saves := tg.store.Saves()

	total, err := tg.game.EndSession(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, tg.pub.Events())
	assert.Equal(t, saves, tg.store.Saves())
}

func TestGame_FlushAll(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	for _, id := range []string{"111", "222", "333"} {
		_, err := tg.game.BeginSession(ctx, id, "rat-"+id)
		require.NoError(t, err)
	}
	_, err := tg.game.EndSession(ctx, "333")
	require.NoError(t, err)

	tg.clock.Advance(4 * time.Minute)
	saves := tg.store.Saves()

	flushed := tg.game.FlushAll(ctx)
	assert.Equal(t, 2, flushed)
	assert.Equal(t, saves+1, tg.store.Saves())

	saved := tg.store.Saved()
	assert.Equal(t, int64(4), saved.Users["111"].TotalMinutes)
	assert.Equal(t, int64(4), saved.Users["222"].TotalMinutes)
	assert.Equal(t, int64(0), saved.Users["333"].TotalMinutes)

	// Nobody online means no save
	_, err = tg.game.EndSession(ctx, "111")
	require.NoError(t, err)
	_, err = tg.game.EndSession(ctx, "222")
	require.NoError(t, err)
	saves = tg.store.Saves()
	assert.Equal(t, 0, tg.game.FlushAll(ctx))
	assert.Equal(t, saves, tg.store.Saves())
}

func TestGame_TotalNeverExceedsElapsed(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	_, err := tg.game.BeginSession(ctx, "111", "alice")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		tg.clock.Advance(time.Duration(rng.Intn(180)) * time.Second)
		switch rng.Intn(4) {
		case 0:
			_, err = tg.game.EndSession(ctx, "111")
		case 1:
			_, err = tg.game.BeginSession(ctx, "111", "alice")
		case 2:
			tg.game.FlushAll(ctx)
		default:
			_, err = tg.game.FlushSession(ctx, "111")
		}
		require.NoError(t, err)

		user, err := tg.game.GetUser(ctx, "111")
		require.NoError(t, err)
		elapsed := int64(tg.clock.Now().Sub(user.FirstSeenAt) / time.Minute)
		assert.LessOrEqual(t, user.TotalMinutes, elapsed)
		assert.GreaterOrEqual(t, user.TotalMinutes, int64(0))
	}
}
