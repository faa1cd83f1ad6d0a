// Package sqlite persists daily price bars.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"stockpulse/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite store for daily bars.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database at path with WAL mode and the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("opened sqlite database", "path", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars_daily (
			symbol  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// UpsertBars inserts or replaces a batch of bars in a single transaction.
func (s *Store) UpsertBars(ctx context.Context, bars []model.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars_daily (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	slog.Debug("committed bars", "count", len(bars), "took", time.Since(start))
	return nil
}

// ReadRange reads bars for symbol inside [from, to], ordered by date, and
// validates them back into a PriceSeries. Returns nil when no rows match.
func (s *Store) ReadRange(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM bars_daily
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.Date = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return model.NewPriceSeries(symbol, bars)
}

// LastDate returns the most recent stored bar date for a symbol, or the zero
// time when the symbol has no bars.
func (s *Store) LastDate(ctx context.Context, symbol string) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM bars_daily WHERE symbol = ?`, symbol,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite last date: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Symbols lists the distinct symbols with stored bars.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars_daily ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("sqlite scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
