package services

import (
	"context"
	"time"

	"spinningrats/domain/events"
)

// ViewerConnected counts a new realtime client and returns the new total
func (g *Game) ViewerConnected(ctx context.Context) int64 {
	var count int64
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		g.state.ActiveViewers++
		count = g.state.ActiveViewers
		return false, []events.Event{events.ViewerCountChangedEvent{ActiveViewers: count}}
	})
	return count
}

// ViewerDisconnected uncounts a realtime client; the count never drops below zero
func (g *Game) ViewerDisconnected(ctx context.Context) int64 {
	var count int64
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		if g.state.ActiveViewers > 0 {
			g.state.ActiveViewers--
		}
		count = g.state.ActiveViewers
		return false, []events.Event{events.ViewerCountChangedEvent{ActiveViewers: count}}
	})
	return count
}

// ActiveViewers returns the number of connected realtime clients
func (g *Game) ActiveViewers(ctx context.Context) int64 {
	var count int64
	g.read(ctx, func(time.Time) {
		count = g.state.ActiveViewers
	})
	return count
}
