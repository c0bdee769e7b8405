package infrastructure

import (
	"spinningrats/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Used by the one-shot CLI commands where no observers run.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
