package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/henrywu-dev/tophy-bot/internal/domain"
	"github.com/henrywu-dev/tophy-bot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.CandleRepository interface using SQLite.
// It serves as a local cache for historical market data so repeated
// backtests don't hammer the exchange API.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/market_data.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %v", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	cfg.Logger.Info(context.Background(), "SQLite candle store ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		open_time TIMESTAMP NOT NULL,
		close_time TIMESTAMP NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (symbol, timeframe, open_time)
	);
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_tf_time ON candles (symbol, timeframe, open_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveCandles upserts a batch of candles in a single transaction. Candles
// sharing (symbol, timeframe, open_time) with an existing row replace it.
func (r *Repository) SaveCandles(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	const query = `
	INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, timeframe, open_time) DO UPDATE SET
		close_time = excluded.close_time,
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare candle upsert: %w: %v", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			c.Symbol, c.Timeframe, c.OpenTime, c.CloseTime,
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("failed to upsert candle %s %s %s: %w: %v",
				c.Symbol, c.Timeframe, c.OpenTime.Format(time.RFC3339), ports.ErrQueryFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candle batch: %w: %v", ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Candle batch saved", map[string]interface{}{"count": len(candles)})
	return nil
}

// FindBySymbol retrieves the most recent candles for a symbol/timeframe,
// returned oldest first. A limit of 0 returns all stored candles.
func (r *Repository) FindBySymbol(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error) {
	query := `
	SELECT symbol, timeframe, open_time, close_time, open, high, low, close, volume
	FROM candles
	WHERE symbol = ? AND timeframe = ?
	ORDER BY open_time DESC`
	args := []interface{}{symbol, timeframe}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s %s: %w: %v", symbol, timeframe, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}

	// Query returns newest first for the LIMIT; flip to ascending.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// FindRange retrieves candles with open times in [start, end), oldest first.
func (r *Repository) FindRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]*domain.Candle, error) {
	const query = `
	SELECT symbol, timeframe, open_time, close_time, open, high, low, close, volume
	FROM candles
	WHERE symbol = ? AND timeframe = ? AND open_time >= ? AND open_time < ?
	ORDER BY open_time ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle range for %s %s: %w: %v", symbol, timeframe, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// CountBySymbol returns the number of stored candles for a symbol/timeframe.
func (r *Repository) CountBySymbol(ctx context.Context, symbol, timeframe string) (int, error) {
	const query = `SELECT COUNT(*) FROM candles WHERE symbol = ? AND timeframe = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, symbol, timeframe).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count candles for %s %s: %w: %v", symbol, timeframe, ports.ErrQueryFailed, err)
	}
	return count, nil
}

func scanCandles(rows *sql.Rows) ([]*domain.Candle, error) {
	candles := make([]*domain.Candle, 0)
	for rows.Next() {
		c := &domain.Candle{}
		if err := rows.Scan(
			&c.Symbol, &c.Timeframe, &c.OpenTime, &c.CloseTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w: %v", ports.ErrQueryFailed, err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candle rows: %w: %v", ports.ErrQueryFailed, err)
	}
	return candles, nil
}
