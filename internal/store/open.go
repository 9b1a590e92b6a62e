package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/database"
)

// Open connects the backend selected by cfg.Store.Driver.
// The returned store still needs Initialize.
func Open(ctx context.Context, cfg *config.Config) (*Keyed, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return New(NewSQLiteBackend(db)), nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return New(NewPostgresBackend(db.Pool)), nil

	case config.DriverMemory:
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Store.Driver)
	}
}

// HealthCheck reports the backend connection health
func HealthCheck(ctx context.Context, s Store) (*database.HealthStatus, error) {
	keyed, ok := s.(*Keyed)
	if !ok {
		return &database.HealthStatus{Driver: s.Driver(), Healthy: true, Timestamp: time.Now()}, nil
	}

	switch b := keyed.backend.(type) {
	case *SQLiteBackend:
		return database.SQLHealthCheck(ctx, b.db)
	case *PostgresBackend:
		return (&database.DB{Pool: b.pool}).HealthCheck(ctx)
	default:
		return &database.HealthStatus{Driver: b.Name(), Healthy: true, Timestamp: time.Now()}, nil
	}
}
