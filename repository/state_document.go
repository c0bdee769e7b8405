package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"spinningrats/domain/entities"
)

// stateDocument is the canonical on-disk shape of the game state
type stateDocument struct {
	SchemaVersion  int                      `json:"schemaVersion"`
	Users          map[string]*userDocument `json:"users"`
	DailyHighscore int64                    `json:"dailyHighscore"`
	ActiveViewers  int64                    `json:"activeViewers"`
	LastReset      string                   `json:"lastReset"`
	BotSettings    botSettingsDocument      `json:"botSettings"`
}

type userDocument struct {
	Name                string `json:"name"`
	DiscordID           string `json:"discordId"`
	TotalMinutes        int64  `json:"totalMinutes"`
	IsLoggedIn          bool   `json:"isLoggedIn"`
	CurrentSessionStart *int64 `json:"currentSessionStart"` // Unix milliseconds
	FirstLogin          int64  `json:"firstLogin"`          // Unix milliseconds
}

type botSettingsDocument struct {
	LeaderboardMessageID *string `json:"leaderboardMessageId"`
	LeaderboardChannelID *string `json:"leaderboardChannelId"`
}

// rawStateDocument accepts every shape the document has had. Fields whose
// type changed between revisions are kept raw and interpreted during migration.
type rawStateDocument struct {
	SchemaVersion  int                        `json:"schemaVersion"`
	Users          map[string]json.RawMessage `json:"users"`
	DailyHighscore json.RawMessage            `json:"dailyHighscore"`
	LastReset      string                     `json:"lastReset"`
	BotSettings    *botSettingsDocument       `json:"botSettings"`
}

type rawUserDocument struct {
	Name                string          `json:"name"`
	DiscordID           json.RawMessage `json:"discordId"`
	TotalMinutes        json.RawMessage `json:"totalMinutes"`
	TotalRatMinutes     json.RawMessage `json:"totalRatMinutes"`
	Points              json.RawMessage `json:"points"`
	IsLoggedIn          bool            `json:"isLoggedIn"`
	CurrentSessionStart json.RawMessage `json:"currentSessionStart"`
	LoginTime           json.RawMessage `json:"loginTime"`
	FirstLogin          json.RawMessage `json:"firstLogin"`
}

// decodeStateDocument parses any known revision of the document and migrates
// it to the canonical game state. Sessions are returned as stored; closing
// them is up to the game service.
func decodeStateDocument(data []byte, today string) (*entities.GameState, error) {
	var raw rawStateDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse state document: %w", err)
	}
	if raw.SchemaVersion > entities.CurrentSchemaVersion {
		return nil, fmt.Errorf("state document schema version %d is newer than supported version %d",
			raw.SchemaVersion, entities.CurrentSchemaVersion)
	}

	state := entities.NewGameState(today)
	if raw.LastReset != "" {
		state.LastReset = raw.LastReset
	}
	if highscore, ok := parseNumber(raw.DailyHighscore); ok {
		state.DailyHighscore = toCount(highscore)
	}
	if raw.BotSettings != nil {
		state.BotSettings.LeaderboardChannelID = nonEmpty(raw.BotSettings.LeaderboardChannelID)
		state.BotSettings.LeaderboardMessageID = nonEmpty(raw.BotSettings.LeaderboardMessageID)
	}

	for key, rawUser := range raw.Users {
		user, err := migrateUser(key, rawUser)
		if err != nil {
			return nil, err
		}
		state.Users[user.DiscordID] = user
	}

	return state, nil
}

func migrateUser(key string, data json.RawMessage) (*entities.RatUser, error) {
	var raw rawUserDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse user %s: %w", key, err)
	}

	user := &entities.RatUser{
		DiscordID: key,
		Name:      raw.Name,
	}
	if id := parseID(raw.DiscordID); id != "" {
		user.DiscordID = id
	}

	// totalMinutes supersedes totalRatMinutes, which superseded points
	for _, candidate := range []json.RawMessage{raw.TotalMinutes, raw.TotalRatMinutes, raw.Points} {
		if minutes, ok := parseNumber(candidate); ok {
			user.TotalMinutes = toCount(minutes)
			break
		}
	}

	if first, ok := parseTimestamp(raw.FirstLogin); ok {
		user.FirstSeenAt = first
	} else if login, ok := parseTimestamp(raw.LoginTime); ok {
		user.FirstSeenAt = login
	}

	if start, ok := parseTimestamp(raw.CurrentSessionStart); ok {
		if user.FirstSeenAt.IsZero() {
			user.FirstSeenAt = start
		}
		if raw.IsLoggedIn {
			user.StartSession(start)
		}
	}

	return user, nil
}

// encodeStateDocument renders the canonical document
func encodeStateDocument(state *entities.GameState) ([]byte, error) {
	doc := stateDocument{
		SchemaVersion:  entities.CurrentSchemaVersion,
		Users:          make(map[string]*userDocument, len(state.Users)),
		DailyHighscore: state.DailyHighscore,
		ActiveViewers:  state.ActiveViewers,
		LastReset:      state.LastReset,
		BotSettings: botSettingsDocument{
			LeaderboardMessageID: state.BotSettings.LeaderboardMessageID,
			LeaderboardChannelID: state.BotSettings.LeaderboardChannelID,
		},
	}

	for id, u := range state.Users {
		ud := &userDocument{
			Name:         u.Name,
			DiscordID:    u.DiscordID,
			TotalMinutes: u.TotalMinutes,
			IsLoggedIn:   u.IsOnline,
		}
		if !u.FirstSeenAt.IsZero() {
			ud.FirstLogin = u.FirstSeenAt.UnixMilli()
		}
		if u.SessionStartedAt != nil {
			start := u.SessionStartedAt.UnixMilli()
			ud.CurrentSessionStart = &start
		}
		doc.Users[id] = ud
	}

	return json.MarshalIndent(doc, "", "  ")
}

// parseNumber reads a JSON number, or a numeric string, that is finite
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxSafeInteger is the largest integer a JSON number holds exactly
const maxSafeInteger = 1<<53 - 1

// toCount truncates a stored number to a whole count in [0, maxSafeInteger]
func toCount(f float64) int64 {
	switch {
	case f <= 0:
		return 0
	case f >= maxSafeInteger:
		return maxSafeInteger
	default:
		return int64(math.Trunc(f))
	}
}

// parseTimestamp reads Unix milliseconds or an RFC 3339 string
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if ms, ok := parseNumber(raw); ok {
		if ms <= 0 || ms > maxSafeInteger {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseID reads an identifier stored either as a string or a number
func parseID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
