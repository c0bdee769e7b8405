package observability

import (
	"context"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/interfaces"
)

// InstrumentedStore records timing and failures of every store call
type InstrumentedStore struct {
	next    interfaces.GameStateStore
	backend string
	metrics *MetricsProvider
}

var _ interfaces.GameStateStore = (*InstrumentedStore)(nil)

// InstrumentStore wraps next; metrics may be nil
func InstrumentStore(next interfaces.GameStateStore, backend string, metrics *MetricsProvider) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, metrics: metrics}
}

func (s *InstrumentedStore) Load(ctx context.Context) (*entities.GameState, error) {
	start := time.Now()
	state, err := s.next.Load(ctx)
	s.metrics.RecordStoreOperation(s.backend, "load", err, time.Since(start))
	return state, err
}

func (s *InstrumentedStore) Save(ctx context.Context, state *entities.GameState) error {
	start := time.Now()
	err := s.next.Save(ctx, state)
	s.metrics.RecordStoreOperation(s.backend, "save", err, time.Since(start))
	return err
}
