package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// AccountingGame is the part of the game service the sweep drives
type AccountingGame interface {
	RolloverIfNeeded(ctx context.Context) bool
	FlushAll(ctx context.Context) int
	BroadcastLeaderboard(ctx context.Context)
}

// AccountingWorker periodically credits online users and republishes the leaderboard
type AccountingWorker struct {
	game     AccountingGame
	interval time.Duration

	// held for the duration of a sweep; a tick that cannot take it is skipped
	sweeping sync.Mutex
}

// NewAccountingWorker creates a worker sweeping every interval
func NewAccountingWorker(game AccountingGame, interval time.Duration) *AccountingWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AccountingWorker{
		game:     game,
		interval: interval,
	}
}

// Start runs a sweep immediately and then on every tick.
// Returns a cleanup function that stops the worker and waits for it to exit.
func (w *AccountingWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})
	var inFlight sync.WaitGroup

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Accounting worker started")

		w.Sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Accounting worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Accounting worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				// Sweeps may be slow on a remote store; never let ticks queue up behind one
				inFlight.Add(1)
				go func() {
					defer inFlight.Done()
					w.Sweep(ctx)
				}()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
			<-done
			inFlight.Wait()
		})
	}
}

// Sweep applies a pending daily reset, flushes every online user and
// publishes the leaderboard. It reports false when another sweep was
// still running and this one was skipped.
func (w *AccountingWorker) Sweep(ctx context.Context) bool {
	if !w.sweeping.TryLock() {
		log.Warn("Accounting sweep still running, skipping tick")
		return false
	}
	defer w.sweeping.Unlock()

	start := time.Now()
	reset := w.game.RolloverIfNeeded(ctx)
	flushed := w.game.FlushAll(ctx)
	w.game.BroadcastLeaderboard(ctx)

	log.WithFields(log.Fields{
		"flushedUsers": flushed,
		"dailyReset":   reset,
		"duration":     time.Since(start),
	}).Debug("Accounting sweep complete")
	return true
}
