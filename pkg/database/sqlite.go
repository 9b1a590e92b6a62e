package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wonny/marketpulse/pkg/config"
)

// OpenSQLite opens the SQLite file at path with a busy timeout and WAL journaling.
// Concurrent writers wait on the file lock instead of failing immediately.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// sqlite serialises writers anyway
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return db, nil
}

// SQLHealthCheck pings a database/sql handle and reports its pool statistics
func SQLHealthCheck(ctx context.Context, db *sql.DB) (*HealthStatus, error) {
	status := &HealthStatus{
		Driver:    config.DriverSQLite,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := db.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle
	status.Healthy = true
	return status, nil
}
