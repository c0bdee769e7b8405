package interfaces

import (
	"context"

	"spinningrats/domain/entities"
	"spinningrats/domain/events"
)

// GameStateStore loads and saves the whole game state document
type GameStateStore interface {
	// Load returns the persisted state, or a default state when nothing is stored yet
	Load(ctx context.Context) (*entities.GameState, error)

	// Save persists the whole state, replacing what was stored before
	Save(ctx context.Context, state *entities.GameState) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
