package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"spinningrats/domain/interfaces"
	"spinningrats/infrastructure/observability"

	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

// GameService is everything the web layer asks of the game
type GameService interface {
	interfaces.SessionAccountingService
	interfaces.LeaderboardService
	interfaces.HighscoreService
	interfaces.PresenceService
}

// Config holds the web server dependencies
type Config struct {
	Addr      string
	StaticDir string

	Game     GameService
	Notifier interfaces.Notifier
	Identity IdentityProvider
	Sessions sessions.Store
	Hub      *Hub
	Metrics  *observability.MetricsProvider
}

// Server serves the site, the login flow and the websocket feed
type Server struct {
	game      GameService
	notifier  interfaces.Notifier
	identity  IdentityProvider
	sessions  sessions.Store
	hub       *Hub
	metrics   *observability.MetricsProvider
	staticDir string

	httpServer *http.Server
}

// NewServer creates the server; it does not start listening
func NewServer(cfg Config) *Server {
	s := &Server{
		game:      cfg.Game,
		notifier:  cfg.Notifier,
		identity:  cfg.Identity,
		sessions:  cfg.Sessions,
		hub:       cfg.Hub,
		metrics:   cfg.Metrics,
		staticDir: cfg.StaticDir,
	}
	if s.hub == nil {
		s.hub = NewHub(cfg.Game, cfg.Metrics)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with panic recovery applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /auth/discord", s.handleLogin)
	mux.HandleFunc("GET /auth/discord/callback", s.handleCallback)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /ws", s.ServeWS)

	if s.staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.staticDir)))
	}

	return recoverMiddleware(mux)
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()

	log.WithField("addr", listener.Addr().String()).Info("HTTP server listening")
	return nil
}

// Shutdown closes the websocket hub and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
				}).Error("HTTP handler panicked")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write JSON response")
	}
}
