package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Websocket event names
const (
	EventGameData          = "gameData"
	EventViewerUpdate      = "viewerUpdate"
	EventHighscoreUpdate   = "highscoreUpdate"
	EventLeaderboardUpdate = "leaderboardUpdate"
	EventError             = "error"

	EventScoreUpdate = "scoreUpdate"
)

// largest float64 that still converts to int64 exactly
const maxExactScore = 1 << 53

var errMalformedScore = errors.New("score must be a non-negative whole number")

// Message is the envelope of every websocket frame
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func encodeMessage(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Message{Event: event, Data: payload})
}

// parseScore accepts a JSON number that is a finite, non-negative integer
func parseScore(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errMalformedScore
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, errMalformedScore
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > maxExactScore {
		return 0, errMalformedScore
	}
	return int64(f), nil
}
