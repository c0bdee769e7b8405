package services

import (
	"context"
	"fmt"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"

	log "github.com/sirupsen/logrus"
)

// rolloverLocked zeroes the daily highscore on the first access of a new
// local day. The reset is persisted right away so it fires once per day.
func (g *Game) rolloverLocked(ctx context.Context, now time.Time) []events.Event {
	today := entities.LocalDate(now, g.location)
	if !g.state.NeedsReset(today) {
		return nil
	}

	previous := g.state.DailyHighscore
	g.state.ResetDaily(today)
	g.persistLocked(ctx)

	log.WithFields(log.Fields{
		"previousHighscore": previous,
		"day":               today,
	}).Info("Daily highscore reset")

	return []events.Event{events.HighscoreChangedEvent{Score: 0, Reset: true}}
}

// RolloverIfNeeded applies a pending daily reset and reports whether one happened
func (g *Game) RolloverIfNeeded(ctx context.Context) bool {
	g.mu.Lock()
	evts := g.rolloverLocked(ctx, g.now())
	g.pubMu.Lock()
	g.mu.Unlock()

	defer g.pubMu.Unlock()
	g.publish(evts)
	return len(evts) > 0
}

// CurrentHighscore returns today's highscore
func (g *Game) CurrentHighscore(ctx context.Context) int64 {
	var score int64
	g.read(ctx, func(time.Time) {
		score = g.state.DailyHighscore
	})
	return score
}

// SubmitScore records a score. Only a strictly higher score replaces the
// daily highscore, and only that case persists and notifies observers.
func (g *Game) SubmitScore(ctx context.Context, score int64) (bool, error) {
	if score < 0 || score > g.maxScore {
		return false, fmt.Errorf("score %d outside [0, %d]: %w", score, g.maxScore, ErrInvalidScore)
	}

	updated := false
	g.update(ctx, func(time.Time) (bool, []events.Event) {
		if score <= g.state.DailyHighscore {
			return false, nil
		}
		g.state.DailyHighscore = score
		updated = true
		return true, []events.Event{events.HighscoreChangedEvent{Score: score}}
	})

	if updated {
		log.WithField("score", score).Info("New daily highscore")
	}
	return updated, nil
}
