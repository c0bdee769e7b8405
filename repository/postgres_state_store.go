package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spinningrats/database"
	"spinningrats/domain/entities"
	"spinningrats/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// PostgresStateStore keeps the game state in the rat_users and game_state tables
type PostgresStateStore struct {
	db       *database.DB
	location *time.Location
	now      func() time.Time
}

var _ interfaces.GameStateStore = (*PostgresStateStore)(nil)

// NewPostgresStateStore creates a store on top of db
func NewPostgresStateStore(db *database.DB, loc *time.Location) *PostgresStateStore {
	if loc == nil {
		loc = time.Local
	}
	return &PostgresStateStore{
		db:       db,
		location: loc,
		now:      time.Now,
	}
}

// Load reads the singleton game_state row and every user. A missing row
// yields the default state; any other failure is returned, since saving
// over a state that could not be read would overwrite the stored totals.
func (s *PostgresStateStore) Load(ctx context.Context) (*entities.GameState, error) {
	state := entities.NewGameState(entities.LocalDate(s.now(), s.location))

	if err := loadGameStateRow(ctx, s.db.Pool, state); err != nil {
		return nil, err
	}

	users, err := loadUsers(ctx, s.db.Pool)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		state.Users[u.DiscordID] = u
	}

	log.WithField("users", len(state.Users)).Debug("Game state loaded from database")
	return state, nil
}

// Save writes the state row and upserts every user in a single transaction
func (s *PostgresStateStore) Save(ctx context.Context, state *entities.GameState) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return saveState(ctx, tx, state)
	})
}

func loadGameStateRow(ctx context.Context, q Queryable, state *entities.GameState) error {
	query := `
		SELECT schema_version, daily_highscore, last_reset, leaderboard_channel_id, leaderboard_message_id
		FROM game_state
		WHERE id = 1
	`

	var (
		schemaVersion int
		highscore     int64
		lastReset     string
		channelID     *string
		messageID     *string
	)
	err := q.QueryRow(ctx, query).Scan(&schemaVersion, &highscore, &lastReset, &channelID, &messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load game state row: %w", err)
	}
	if schemaVersion > entities.CurrentSchemaVersion {
		return fmt.Errorf("stored schema version %d is newer than supported version %d",
			schemaVersion, entities.CurrentSchemaVersion)
	}

	state.DailyHighscore = highscore
	if lastReset != "" {
		state.LastReset = lastReset
	}
	state.BotSettings.LeaderboardChannelID = nonEmpty(channelID)
	state.BotSettings.LeaderboardMessageID = nonEmpty(messageID)
	return nil
}

func loadUsers(ctx context.Context, q Queryable) ([]*entities.RatUser, error) {
	query := `
		SELECT discord_id, name, total_minutes, is_logged_in, current_session_start, first_login
		FROM rat_users
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rat users: %w", err)
	}
	defer rows.Close()

	var users []*entities.RatUser
	for rows.Next() {
		var (
			u            entities.RatUser
			sessionStart *int64
			firstLogin   int64
		)
		if err := rows.Scan(&u.DiscordID, &u.Name, &u.TotalMinutes, &u.IsOnline, &sessionStart, &firstLogin); err != nil {
			return nil, fmt.Errorf("failed to scan rat user: %w", err)
		}
		if sessionStart != nil {
			started := time.UnixMilli(*sessionStart)
			u.SessionStartedAt = &started
		}
		if !u.IsOnline {
			u.SessionStartedAt = nil
		}
		if firstLogin > 0 {
			u.FirstSeenAt = time.UnixMilli(firstLogin)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rat users: %w", err)
	}

	return users, nil
}

func saveState(ctx context.Context, q Queryable, state *entities.GameState) error {
	stateQuery := `
		INSERT INTO game_state (id, schema_version, daily_highscore, last_reset, leaderboard_channel_id, leaderboard_message_id, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			daily_highscore = EXCLUDED.daily_highscore,
			last_reset = EXCLUDED.last_reset,
			leaderboard_channel_id = EXCLUDED.leaderboard_channel_id,
			leaderboard_message_id = EXCLUDED.leaderboard_message_id,
			updated_at = NOW()
	`
	_, err := q.Exec(ctx, stateQuery,
		entities.CurrentSchemaVersion,
		state.DailyHighscore,
		state.LastReset,
		state.BotSettings.LeaderboardChannelID,
		state.BotSettings.LeaderboardMessageID,
	)
	if err != nil {
		return fmt.Errorf("failed to save game state row: %w", err)
	}

	if len(state.Users) == 0 {
		return nil
	}

	userQuery := `
		INSERT INTO rat_users (discord_id, name, total_minutes, is_logged_in, current_session_start, first_login, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (discord_id) DO UPDATE SET
			name = EXCLUDED.name,
			total_minutes = EXCLUDED.total_minutes,
			is_logged_in = EXCLUDED.is_logged_in,
			current_session_start = EXCLUDED.current_session_start,
			first_login = EXCLUDED.first_login,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, u := range state.Users {
		var sessionStart *int64
		if u.SessionStartedAt != nil {
			ms := u.SessionStartedAt.UnixMilli()
			sessionStart = &ms
		}
		var firstLogin int64
		if !u.FirstSeenAt.IsZero() {
			firstLogin = u.FirstSeenAt.UnixMilli()
		}
		batch.Queue(userQuery, u.DiscordID, u.Name, u.TotalMinutes, u.IsOnline, sessionStart, firstLogin)
	}

	results := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert rat user: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close user batch: %w", err)
	}

	return nil
}
