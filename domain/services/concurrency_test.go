package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"spinningrats/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_ConcurrentPresence(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.game.ViewerConnected(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), tg.game.ActiveViewers(ctx))

	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.game.ViewerDisconnected(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), tg.game.ActiveViewers(ctx))

	// Every change was published, and the last one is the final count
	changes := tg.pub.OfType(events.EventTypeViewerCountChanged)
	require.Len(t, changes, 250)
	assert.Equal(t, int64(0), changes[len(changes)-1].(events.ViewerCountChangedEvent).ActiveViewers)
}

func TestGame_ConcurrentFlushAndEndSession(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	const users = 20
	for i := 0; i < users; i++ {
		_, err := tg.game.BeginSession(ctx, fmt.Sprintf("user-%d", i), "rat")
		require.NoError(t, err)
	}
	tg.clock.Advance(10*time.Minute + 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		id := fmt.Sprintf("user-%d", i)
		wg.Add(3)
		go func() {
			defer wg.Done()
			tg.game.FlushAll(ctx)
		}()
		go func() {
			defer wg.Done()
			_, err := tg.game.FlushSession(ctx, id)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := tg.game.EndSession(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// However the calls interleave, each session is credited exactly once
	for i := 0; i < users; i++ {
		user, err := tg.game.GetUser(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		assert.False(t, user.IsOnline)
		assert.Nil(t, user.SessionStartedAt)
		assert.Equal(t, int64(10), user.TotalMinutes)
	}
	assert.Equal(t, 0, tg.game.FlushAll(ctx))
	assert.Len(t, tg.pub.OfType(events.EventTypeUserLoggedOut), users)
}
