package migrations

import (
	"github.com/bidhaus/auction-engine/internal/shared/config"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var log = logger.GetLogger()

// RunMigrations applies all pending SQL migrations against the configured
// database. Already-applied migrations are a no-op.
func RunMigrations() error {
	dbURL := config.BuildPostgresDSN()
	log.Info("running database migrations")
	m, err := migrate.New(
		"file://internal/shared/db/migrations/sql",
		dbURL,
	)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
