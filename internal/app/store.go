package app

import (
	"context"
	"fmt"

	"github.com/vytor/realorai/internal/config"
	"github.com/vytor/realorai/internal/db"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/repository"
	"github.com/vytor/realorai/internal/repository/postgres"
	"github.com/vytor/realorai/internal/repository/sqlite"
)

// Store bundles the repositories for the configured backend. Opening a store
// applies pending migrations.
type Store struct {
	Driver   string
	Puzzles  repository.PuzzleRepository
	Sessions repository.SessionRepository

	version func(ctx context.Context) (uint, bool, error)
	close   func()
}

// OpenStore opens the backend selected by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg config.Config) (*Store, error) {
	log := logger.Default().WithPrefix("store")

	switch cfg.DBDriver {
	case "sqlite", "":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:   "sqlite",
			Puzzles:  sqlite.NewPuzzleRepository(database.DB),
			Sessions: sqlite.NewSessionRepository(database.DB),
			version:  database.SchemaVersion,
			close: func() {
				log.Debug("closing database connection")
				if err := database.Close(); err != nil {
					log.Warn("failed to close database: %v", err)
				}
			},
		}, nil

	case "postgres":
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:   "postgres",
			Puzzles:  postgres.NewPuzzleRepository(pool),
			Sessions: postgres.NewSessionRepository(pool),
			version: func(context.Context) (uint, bool, error) {
				return db.PostgresSchemaVersion(cfg.DatabaseURL)
			},
			close: func() {
				log.Debug("closing connection pool")
				pool.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// SchemaVersion returns the applied migration version and whether it is dirty.
func (s *Store) SchemaVersion(ctx context.Context) (uint, bool, error) {
	return s.version(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
