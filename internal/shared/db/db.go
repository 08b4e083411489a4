package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bidhaus/auction-engine/internal/shared/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	dbPool *pgxpool.Pool
	once   sync.Once
)

// GetPostgresDBPool returns the singleton pgx pool, building it on first use
// from the DB_* environment variables.
func GetPostgresDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		databaseURL := config.BuildPostgresDSN()

		cfg, configErr := pgxpool.ParseConfig(databaseURL)
		if configErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", configErr)
			return
		}
		cfg.MaxConns = 16
		cfg.MinConns = 2
		cfg.HealthCheckPeriod = 30 * time.Second

		pool, connectErr := pgxpool.NewWithConfig(ctx, cfg)
		if connectErr != nil {
			err = fmt.Errorf("unable to connect to DB: %w", connectErr)
			return
		}
		dbPool = pool
	})

	if err != nil {
		return nil, err
	}
	if dbPool == nil {
		return nil, errors.New("database pool was not initialized")
	}
	if pingErr := dbPool.Ping(ctx); pingErr != nil {
		return nil, fmt.Errorf("database pool ping failed: %w", pingErr)
	}

	return dbPool, nil
}
