package web

import (
	"context"
	"errors"
	"sync"

	"spinningrats/domain/events"
	"spinningrats/domain/services"
	"spinningrats/infrastructure"
	"spinningrats/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

var errHubClosed = errors.New("hub closed")

// Hub tracks websocket clients, fans out game events to them and turns
// a user's first and last socket into session begin and end.
// A user's socket count and the session call it leads to happen under
// that user's lock, so a reconnect cannot interleave with a disconnect.
type Hub struct {
	game    GameService
	metrics *observability.MetricsProvider

	mu        sync.Mutex
	clients   map[*Client]struct{}
	userConns map[string]int
	userLocks map[string]*userLock
	closed    bool
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewHub creates a hub for game
func NewHub(game GameService, metrics *observability.MetricsProvider) *Hub {
	return &Hub{
		game:      game,
		metrics:   metrics,
		clients:   make(map[*Client]struct{}),
		userConns: make(map[string]int),
		userLocks: make(map[string]*userLock),
	}
}

// lockUser serializes socket bookkeeping for one user and returns the unlock func
func (h *Hub) lockUser(discordID string) func() {
	h.mu.Lock()
	l, ok := h.userLocks[discordID]
	if !ok {
		l = &userLock{}
		h.userLocks[discordID] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.userLocks, discordID)
		}
		h.mu.Unlock()
	}
}

// Subscribe registers the hub's broadcast handlers on bus
func (h *Hub) Subscribe(bus *infrastructure.EventBus) {
	bus.Subscribe(events.EventTypeViewerCountChanged, func(ctx context.Context, event events.Event) {
		evt := event.(events.ViewerCountChangedEvent)
		h.metrics.RecordActiveViewers(evt.ActiveViewers)
		h.Broadcast(EventViewerUpdate, evt.ActiveViewers)
	})
	bus.Subscribe(events.EventTypeHighscoreChanged, func(ctx context.Context, event events.Event) {
		h.Broadcast(EventHighscoreUpdate, event.(events.HighscoreChangedEvent).Score)
	})
	bus.Subscribe(events.EventTypeLeaderboardUpdated, func(ctx context.Context, event events.Event) {
		h.Broadcast(EventLeaderboardUpdate, event.(events.LeaderboardUpdatedEvent).Entries)
	})
}

// Broadcast sends an event to every client without blocking.
// Clients whose buffer is full are disconnected.
func (h *Hub) Broadcast(event string, data any) {
	frame, err := encodeMessage(event, data)
	if err != nil {
		log.WithError(err).WithField("event", event).Error("Failed to encode broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.enqueue(frame) {
			log.WithField("discordId", client.discordID).Warn("Websocket client too slow, disconnecting")
			client.closeSend()
		}
	}
}

// register adds a client. For an authenticated user without another open
// socket an ended session is resumed; the viewer count goes up and the
// client is sent the initial snapshot before it starts receiving broadcasts.
func (h *Hub) register(ctx context.Context, client *Client) error {
	if client.discordID != "" {
		unlock := h.lockUser(client.discordID)
		err := h.countSocket(ctx, client)
		unlock()
		if err != nil {
			return err
		}
	} else {
		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return errHubClosed
		}
	}
	h.game.ViewerConnected(ctx)

	frame, err := encodeMessage(EventGameData, h.game.Snapshot(ctx, client.discordID))
	if err != nil {
		log.WithError(err).Error("Failed to encode game snapshot")
	} else {
		client.enqueue(frame)
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	if h.closed {
		client.closeSend()
	}
	h.mu.Unlock()
	return nil
}

// countSocket adds one of the user's sockets and resumes the session on
// the first one. The caller holds the user's lock.
func (h *Hub) countSocket(ctx context.Context, client *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errHubClosed
	}
	h.userConns[client.discordID]++
	firstSocket := h.userConns[client.discordID] == 1
	h.mu.Unlock()

	if firstSocket {
		h.resumeSession(ctx, client)
	}
	return nil
}

func (h *Hub) resumeSession(ctx context.Context, client *Client) {
	user, err := h.game.GetUser(ctx, client.discordID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		log.WithError(err).WithField("discordId", client.discordID).Warn("Failed to look up user for socket")
		return
	}
	if user != nil && user.IsOnline {
		return
	}
	if _, err := h.game.BeginSession(ctx, client.discordID, client.displayName); err != nil {
		log.WithError(err).WithField("discordId", client.discordID).Warn("Failed to resume session for socket")
	}
}

// unregister removes a client. The viewer count goes down and the
// user's session ends with their last socket.
func (h *Hub) unregister(ctx context.Context, client *Client) {
	if client.discordID != "" {
		unlock := h.lockUser(client.discordID)
		defer unlock()
	}

	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.closeSend()

	lastSocket := false
	if client.discordID != "" {
		h.userConns[client.discordID]--
		if h.userConns[client.discordID] <= 0 {
			delete(h.userConns, client.discordID)
			lastSocket = true
		}
	}
	closing := h.closed
	h.mu.Unlock()

	h.game.ViewerDisconnected(ctx)

	// On shutdown sessions are flushed by the game instead
	if lastSocket && !closing {
		if _, err := h.game.EndSession(ctx, client.discordID); err != nil && !errors.Is(err, services.ErrUserNotFound) {
			log.WithError(err).WithField("discordId", client.discordID).Warn("Failed to end session for socket")
			return
		}
		h.metrics.RecordSessionEnded()
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		client.closeSend()
	}
	log.WithField("clients", len(h.clients)).Info("Websocket hub closed")
}
