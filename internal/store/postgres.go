package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/pkg/config"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS stock_prices (
		symbol         TEXT             NOT NULL CHECK (symbol <> ''),
		date           TEXT             NOT NULL CHECK (date <> ''),
		open           DOUBLE PRECISION NOT NULL,
		high           DOUBLE PRECISION NOT NULL,
		low            DOUBLE PRECISION NOT NULL,
		close          DOUBLE PRECISION NOT NULL,
		volume         BIGINT           NOT NULL,
		daily_return   DOUBLE PRECISION NOT NULL,
		moving_average DOUBLE PRECISION NOT NULL,
		volatility     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, date)
	)`

const postgresInsert = `
	INSERT INTO stock_prices
		(symbol, date, open, high, low, close, volume, daily_return, moving_average, volatility)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (symbol, date) DO NOTHING`

// PostgreSQL error codes
const (
	pgErrUndefinedTable = "42P01" // undefined_table
)

// PostgresBackend stores rows in PostgreSQL via pgxpool
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend wraps a pool (see database.New)
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Name returns the driver name
func (p *PostgresBackend) Name() string {
	return config.DriverPostgres
}

// CreateSchema creates stock_prices if it does not exist
func (p *PostgresBackend) CreateSchema(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create table %s: %w", TableName, err)
	}
	return nil
}

// InsertIfAbsent queues every row in one batch inside a transaction
func (p *PostgresBackend) InsertIfAbsent(ctx context.Context, rows []contracts.StoredRow) (int, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(postgresInsert,
			r.Symbol, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume,
			r.DailyReturn, r.MovingAverage, r.Volatility,
		)
	}

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for _, r := range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, classify(fmt.Errorf("insert %s %s: %w", r.Symbol, r.Date, err))
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListBySymbol returns the newest limit rows for symbol, oldest first
func (p *PostgresBackend) ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, daily_return, moving_average, volatility
		FROM (
			SELECT * FROM stock_prices
			WHERE symbol = $1
			ORDER BY date DESC
			LIMIT $2
		) latest
		ORDER BY date ASC`

	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, symbol, limitArg)
	if err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", symbol, err))
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
func (p *PostgresBackend) Count(ctx context.Context) (int64, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM stock_prices`).Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("count rows: %w", err))
	}
	return n, nil
}

// Close closes the pool
func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

// classify maps a missing table (dropped behind our back) to ErrNotInitialized
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUndefinedTable {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	return err
}
