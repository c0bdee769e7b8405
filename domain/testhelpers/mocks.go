package testhelpers

import (
	"context"
	"sync"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockGameStateStore is a mock implementation of GameStateStore
type MockGameStateStore struct {
	mock.Mock
}

func (m *MockGameStateStore) Load(ctx context.Context) (*entities.GameState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameState), args.Error(1)
}

func (m *MockGameStateStore) Save(ctx context.Context, state *entities.GameState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(notification entities.LoginNotification) {
	m.Called(notification)
}

// MemoryStateStore keeps a deep copy of the last saved state
type MemoryStateStore struct {
	mu      sync.Mutex
	state   *entities.GameState
	saves   int
	SaveErr error
}

// NewMemoryStateStore creates a store preloaded with state (nil for empty)
func NewMemoryStateStore(state *entities.GameState) *MemoryStateStore {
	return &MemoryStateStore{state: state}
}

func (s *MemoryStateStore) Load(ctx context.Context) (*entities.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	return s.state.Clone(), nil
}

func (s *MemoryStateStore) Save(ctx context.Context, state *entities.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.state = state.Clone()
	return nil
}

// Saved returns a copy of the last saved state
func (s *MemoryStateStore) Saved() *entities.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// Saves returns how many times Save was called
func (s *MemoryStateStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// RecordingPublisher records every published event in order
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the recorded events
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// OfType returns the recorded events of one type
func (p *RecordingPublisher) OfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, evt := range p.Events() {
		if evt.Type() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Reset forgets all recorded events
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
