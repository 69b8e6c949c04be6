package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"kabu-chart/internal/errors"
	"kabu-chart/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseError, "opening %s: %v", dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Daily OHLCV bars, one row per security per trading day
	CREATE TABLE IF NOT EXISTS bars (
		code TEXT NOT NULL,
		time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (code, time)
	);

	-- Trade events from broker statements
	CREATE TABLE IF NOT EXISTS trade_events (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		date INTEGER NOT NULL,
		side TEXT NOT NULL,
		action TEXT NOT NULL,
		units REAL NOT NULL,
		price REAL NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		broker TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL DEFAULT '',
		realized_pnl_net REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trade_events_code_date ON trade_events(code, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBars upserts bars for a security code.
func (s *SQLiteStore) SaveBars(ctx context.Context, code string, bars []models.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (code, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, time) DO UPDATE SET
			open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, code, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("inserting bar at %d: %w", b.Time, err)
		}
	}
	return tx.Commit()
}

// GetBars returns all bars for a code sorted ascending by time.
func (s *SQLiteStore) GetBars(ctx context.Context, code string) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume
		FROM bars WHERE code = ? ORDER BY time ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("querying bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, errors.NewDataError("bars", code, "scanning row", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveTrades inserts trade events for a code, assigning a ULID to any event
// without an id. Events that already carry an id are replaced.
func (s *SQLiteStore) SaveTrades(ctx context.Context, code string, trades []models.TradeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO trade_events
			(id, code, date, side, action, units, price, kind, broker, account, realized_pnl_net)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if t.ID == "" {
			t.ID = ulid.Make().String()
		}
		var pnl interface{}
		if t.RealizedPnLNet != nil {
			pnl = *t.RealizedPnLNet
		}
		if _, err := stmt.ExecContext(ctx, t.ID, code, t.Date, string(t.Side), string(t.Action),
			t.Units, t.Price, t.Kind.String(), t.Broker, t.Account, pnl); err != nil {
			return fmt.Errorf("inserting trade %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// GetTrades returns all trade events for a code. Same-day events come back
// in insertion order: the id is a ULID, so (date, id) preserves it.
func (s *SQLiteStore) GetTrades(ctx context.Context, code string) ([]models.TradeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, side, action, units, price, kind, broker, account, realized_pnl_net
		FROM trade_events WHERE code = ? ORDER BY date ASC, id ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeEvent
	for rows.Next() {
		var t models.TradeEvent
		var kind string
		var pnl sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Date, &t.Side, &t.Action, &t.Units, &t.Price,
			&kind, &t.Broker, &t.Account, &pnl); err != nil {
			return nil, errors.NewDataError("trades", code, "scanning row", err)
		}
		t.Kind = models.ParseTransferKind(kind)
		if pnl.Valid {
			v := pnl.Float64
			t.RealizedPnLNet = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
