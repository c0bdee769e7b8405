package services

import (
	"context"
	"testing"

	"spinningrats/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame_Presence(t *testing.T) {
	t.Parallel()
	tg := newTestGame(t, nil)
	ctx := context.Background()

	assert.Equal(t, int64(0), tg.game.ViewerDisconnected(ctx))
	assert.Equal(t, int64(1), tg.game.ViewerConnected(ctx))
	assert.Equal(t, int64(2), tg.game.ViewerConnected(ctx))
	assert.Equal(t, int64(1), tg.game.ViewerDisconnected(ctx))
	assert.Equal(t, int64(0), tg.game.ViewerDisconnected(ctx))
	assert.Equal(t, int64(0), tg.game.ViewerDisconnected(ctx))
	assert.Equal(t, int64(0), tg.game.ActiveViewers(ctx))

	changes := tg.pub.OfType(events.EventTypeViewerCountChanged)
	require.Len(t, changes, 6)
	want := []int64{0, 1, 2, 1, 0, 0}
	for i, evt := range changes {
		assert.Equal(t, want[i], evt.(events.ViewerCountChangedEvent).ActiveViewers)
	}

	// Presence is runtime only
	assert.Equal(t, 0, tg.store.Saves())
}
