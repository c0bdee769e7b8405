package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spinningrats/domain/entities"
	"spinningrats/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// JSONStateStore keeps the game state as one JSON document on disk
type JSONStateStore struct {
	path     string
	location *time.Location
	now      func() time.Time

	// serializes writers so two saves never race on the temp file
	mu sync.Mutex
}

var _ interfaces.GameStateStore = (*JSONStateStore)(nil)

// NewJSONStateStore creates a store backed by the file at path. loc decides
// the date stamped on a fresh default state.
func NewJSONStateStore(path string, loc *time.Location) *JSONStateStore {
	if loc == nil {
		loc = time.Local
	}
	return &JSONStateStore{
		path:     path,
		location: loc,
		now:      time.Now,
	}
}

// Load reads and migrates the document. A missing, unreadable or
// corrupt file yields the default state rather than an error.
func (s *JSONStateStore) Load(ctx context.Context) (*entities.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := entities.LocalDate(s.now(), s.location)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", s.path).Info("No state file found, starting with a fresh game state")
		return entities.NewGameState(today), nil
	}
	if err != nil {
		log.WithError(err).WithField("path", s.path).Warn("Failed to read state file, starting with a fresh game state")
		return entities.NewGameState(today), nil
	}

	state, err := decodeStateDocument(data, today)
	if err != nil {
		log.WithError(err).WithField("path", s.path).Warn("State file is unusable, starting with a fresh game state")
		return entities.NewGameState(today), nil
	}

	return state, nil
}

// LoadStrict reads and migrates the document like Load but reports a
// missing, unreadable or corrupt file as an error
func (s *JSONStateStore) LoadStrict(ctx context.Context) (*entities.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state, err := decodeStateDocument(data, entities.LocalDate(s.now(), s.location))
	if err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", s.path, err)
	}
	return state, nil
}

// Save writes the document to a temp file in the same directory and renames
// it over the old one, so a crash mid-write never leaves a torn document
func (s *JSONStateStore) Save(ctx context.Context, state *entities.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeStateDocument(state)
	if err != nil {
		return fmt.Errorf("failed to encode game state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true

	return nil
}
