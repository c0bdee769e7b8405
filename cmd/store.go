package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinningrats/config"
	"spinningrats/database"
	"spinningrats/domain/entities"
	"spinningrats/domain/interfaces"
	"spinningrats/infrastructure/observability"
	"spinningrats/repository"
)

// openStore builds the configured state store wrapped with metrics. The
// returned close function releases the database pool, if any.
func openStore(ctx context.Context, cfg *config.Config, loc *time.Location, metrics *observability.MetricsProvider) (interfaces.GameStateStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStateStore(db, loc)
		return observability.InstrumentStore(store, config.StoreBackendPostgres, metrics), db.Close, nil

	default:
		log.Printf("Using JSON state file %s", cfg.DataFile)
		store := repository.NewJSONStateStore(cfg.DataFile, loc)
		return observability.InstrumentStore(store, config.StoreBackendFile, metrics), func() {}, nil
	}
}

// openDatabase applies pending migrations and connects to PostgreSQL
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	databaseURL := cfg.GetDatabaseURL()

	log.Println("Running database migrations...")
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")
	return db, nil
}

// readOnlyStore loads from the wrapped store and drops every save, so
// one-shot commands never overwrite the state of a running server
type readOnlyStore struct {
	interfaces.GameStateStore
}

func (readOnlyStore) Save(ctx context.Context, state *entities.GameState) error {
	return nil
}
