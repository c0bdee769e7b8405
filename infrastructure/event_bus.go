package infrastructure

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"spinningrats/domain/events"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrBusClosed is returned when publishing after the bus was closed
	ErrBusClosed = errors.New("event bus closed")

	// ErrBusFull is returned when the queue has no room; the event is dropped
	ErrBusFull = errors.New("event bus queue full")
)

// Handler is a function that handles events
type Handler func(ctx context.Context, event events.Event)

// EventBus delivers published events to subscribers on a single goroutine,
// in publish order. Handlers must not block for long and must not publish
// back into the bus synchronously.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[events.EventType][]Handler
	allHandlers []Handler

	queue     chan events.Event
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	running   atomic.Bool
}

// NewEventBus creates a new event bus with the given queue capacity
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = 256
	}
	return &EventBus{
		handlers: make(map[events.EventType][]Handler),
		queue:    make(chan events.Event, capacity),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType events.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler that receives every event
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allHandlers = append(b.allHandlers, handler)
}

// Publish queues an event for delivery without blocking. When the queue
// is full the event is dropped, so a slow subscriber never stalls publishers.
func (b *EventBus) Publish(event events.Event) error {
	select {
	case <-b.closed:
		return ErrBusClosed
	default:
	}

	select {
	case b.queue <- event:
		return nil
	default:
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"capacity":  cap(b.queue),
		}).Warn("Event bus queue full, dropping event")
		return ErrBusFull
	}
}

// Start launches the dispatcher goroutine. It delivers queued events until
// ctx is cancelled or the bus is closed; calling Start again is a no-op.
func (b *EventBus) Start(ctx context.Context) {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	go b.run(ctx)
}

func (b *EventBus) run(ctx context.Context) {
	defer close(b.done)
	log.Info("Event bus started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Event bus shutting down (context cancelled)...")
			return
		case <-b.closed:
			b.drain(ctx)
			log.Info("Event bus shutting down (closed)...")
			return
		case event := <-b.queue:
			b.dispatch(ctx, event)
		}
	}
}

// Close stops accepting events and, once started, waits until the
// dispatcher has delivered what was queued
func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
	if b.running.Load() {
		<-b.done
	}
}

func (b *EventBus) drain(ctx context.Context) {
	for {
		select {
		case event := <-b.queue:
			b.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (b *EventBus) dispatch(ctx context.Context, event events.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.Type()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Dispatching event")

	for i, handler := range handlers {
		b.invoke(ctx, handler, i, event)
	}
}

func (b *EventBus) invoke(ctx context.Context, h Handler, index int, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": index,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	h(ctx, event)
}
