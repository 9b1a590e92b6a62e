package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/pkg/config"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS stock_prices (
		symbol         TEXT    NOT NULL CHECK (symbol <> ''),
		date           TEXT    NOT NULL CHECK (date <> ''),
		open           REAL    NOT NULL,
		high           REAL    NOT NULL,
		low            REAL    NOT NULL,
		close          REAL    NOT NULL,
		volume         INTEGER NOT NULL,
		daily_return   REAL    NOT NULL,
		moving_average REAL    NOT NULL,
		volatility     REAL    NOT NULL,
		PRIMARY KEY (symbol, date)
	)`

const sqliteInsert = `
	INSERT INTO stock_prices
		(symbol, date, open, high, low, close, volume, daily_return, moving_average, volatility)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, date) DO NOTHING`

// SQLiteBackend stores rows in a SQLite file
type SQLiteBackend struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend wraps an opened *sql.DB (see database.OpenSQLite)
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Name returns the driver name
func (s *SQLiteBackend) Name() string {
	return config.DriverSQLite
}

// DB exposes the handle for health checks
func (s *SQLiteBackend) DB() *sql.DB {
	return s.db
}

// CreateSchema creates stock_prices if it does not exist
func (s *SQLiteBackend) CreateSchema(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create table %s: %w", TableName, err)
	}
	return nil
}

// InsertIfAbsent inserts rows in one transaction on a dedicated connection
func (s *SQLiteBackend) InsertIfAbsent(ctx context.Context, rows []contracts.StoredRow) (int, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return 0, classifySQLite(fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx,
			r.Symbol, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume,
			r.DailyReturn, r.MovingAverage, r.Volatility,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", r.Symbol, r.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListBySymbol returns the newest limit rows for symbol, oldest first
func (s *SQLiteBackend) ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	query := `
		SELECT symbol, date, open, high, low, close, volume, daily_return, moving_average, volatility
		FROM (
			SELECT * FROM stock_prices
			WHERE symbol = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC`

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, classifySQLite(fmt.Errorf("query %s: %w", symbol, err))
	}
	defer rows.Close()

	var result []contracts.StoredRow
	for rows.Next() {
		var r contracts.StoredRow
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&r.DailyReturn, &r.MovingAverage, &r.Volatility); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the number of rows
func (s *SQLiteBackend) Count(ctx context.Context) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_prices`).Scan(&n); err != nil {
		return 0, classifySQLite(fmt.Errorf("count rows: %w", err))
	}
	return n, nil
}

// Close closes the database handle
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// classifySQLite maps a missing table to ErrNotInitialized
func classifySQLite(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	return err
}
