package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"spinningrats/domain/services"
	"spinningrats/infrastructure/observability"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one websocket connection
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	discordID   string // empty for anonymous viewers
	displayName string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues a frame without blocking; false means the buffer was full or closed
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend makes the write pump send a close frame and exit
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeWS upgrades the request and runs the connection until it closes
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if user := sessionUser(s.sessions, r); user != nil {
		client.discordID = user.DiscordID
		client.displayName = user.DisplayName
	}

	// The request context ends with the handler; sessions must outlive it
	ctx := context.WithoutCancel(r.Context())

	if err := s.hub.register(ctx, client); err != nil {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx, s)
}

func (c *Client) readPump(ctx context.Context, s *Server) {
	defer func() {
		c.hub.unregister(ctx, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("Websocket closed unexpectedly")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		switch msg.Event {
		case EventScoreUpdate:
			c.handleScore(ctx, s, msg.Data)
		default:
			c.sendError("unknown event")
		}
	}
}

func (c *Client) handleScore(ctx context.Context, s *Server, data json.RawMessage) {
	if c.discordID == "" {
		s.metrics.RecordScoreSubmission(observability.ResultRejected)
		c.sendError("login required to submit scores")
		return
	}

	score, err := parseScore(data)
	if err != nil {
		s.metrics.RecordScoreSubmission(observability.ResultRejected)
		c.sendError(err.Error())
		return
	}

	if _, err := s.game.SubmitScore(ctx, score); err != nil {
		s.metrics.RecordScoreSubmission(observability.ResultRejected)
		if errors.Is(err, services.ErrInvalidScore) {
			c.sendError("score out of range")
			return
		}
		log.WithError(err).Warn("Failed to submit score")
		return
	}
	s.metrics.RecordScoreSubmission(observability.ResultAccepted)
}

func (c *Client) sendError(reason string) {
	frame, err := encodeMessage(EventError, reason)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
