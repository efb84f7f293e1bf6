package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wheelstrat/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Historical OHLCV bars
	CREATE TABLE IF NOT EXISTS price_bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		bar_size TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, bar_size, date)
	);

	-- Split factors: detected and authoritative records coexist per date
	CREATE TABLE IF NOT EXISTS split_factors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		factor REAL NOT NULL,
		detected_ratio REAL,
		source TEXT NOT NULL,
		confidence REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date, source)
	);

	-- Aggregate statistics, recomputed and upserted on every run
	CREATE TABLE IF NOT EXISTS aggregate_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		horizon INTEGER NOT NULL,
		vol_bucket TEXT NOT NULL DEFAULT '',
		rth INTEGER NOT NULL DEFAULT 1,
		adjusted INTEGER NOT NULL DEFAULT 1,
		source TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, name, kind, horizon, vol_bucket, rth, adjusted, source)
	);

	-- Last-sent timestamps gating repeat alerts
	CREATE TABLE IF NOT EXISTS alert_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		pattern TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		UNIQUE(symbol, pattern)
	);

	CREATE INDEX IF NOT EXISTS idx_price_bars_lookup ON price_bars(symbol, bar_size, date);
	CREATE INDEX IF NOT EXISTS idx_split_factors_symbol ON split_factors(symbol, date);
	CREATE INDEX IF NOT EXISTS idx_aggregate_stats_symbol ON aggregate_stats(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveBars inserts or replaces bars for a (symbol, bar size) key.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol, barSize string, bars []models.PriceBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO price_bars (symbol, bar_size, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, barSize, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar %s %s: %w", symbol, b.Date, err)
		}
	}

	return tx.Commit()
}

// GetBars returns all bars for a (symbol, bar size) key, ascending by date.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol, barSize string) ([]models.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = ? AND bar_size = ?
		ORDER BY date ASC`, symbol, barSize)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReplaceDetectedSplits removes every detected record for the symbol and
// writes the new detection set in one transaction. Authoritative records
// are untouched.
func (s *SQLiteStore) ReplaceDetectedSplits(ctx context.Context, symbol string, factors []models.SplitFactor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM split_factors WHERE symbol = ? AND source = ?`,
		symbol, models.SourceDetected); err != nil {
		return fmt.Errorf("delete detected splits: %w", err)
	}

	for _, f := range factors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO split_factors (symbol, date, factor, detected_ratio, source, confidence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			symbol, f.Date, f.Factor, f.DetectedRatio, models.SourceDetected, f.Confidence); err != nil {
			return fmt.Errorf("insert detected split %s %s: %w", symbol, f.Date, err)
		}
	}

	return tx.Commit()
}

// SaveSplitFactor upserts one authoritative split record.
func (s *SQLiteStore) SaveSplitFactor(ctx context.Context, f models.SplitFactor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO split_factors (symbol, date, factor, detected_ratio, source, confidence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date, source) DO UPDATE SET
			factor = excluded.factor,
			detected_ratio = excluded.detected_ratio,
			confidence = excluded.confidence`,
		f.Symbol, f.Date, f.Factor, f.DetectedRatio, f.Source, f.Confidence)
	if err != nil {
		return fmt.Errorf("upsert split factor: %w", err)
	}
	return nil
}

// GetSplitFactors returns all split records for a symbol, ascending by
// date, authoritative sources before detected for the same date.
func (s *SQLiteStore) GetSplitFactors(ctx context.Context, symbol string) ([]models.SplitFactor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, factor, COALESCE(detected_ratio, 0), source, COALESCE(confidence, 0)
		FROM split_factors
		WHERE symbol = ?
		ORDER BY date ASC, source ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query split factors: %w", err)
	}
	defer rows.Close()

	var factors []models.SplitFactor
	for rows.Next() {
		var f models.SplitFactor
		if err := rows.Scan(&f.Symbol, &f.Date, &f.Factor, &f.DetectedRatio, &f.Source, &f.Confidence); err != nil {
			return nil, fmt.Errorf("scan split factor: %w", err)
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

// UpsertAggregateStat writes one statistics row, merging on the composite
// uniqueness key since the same key is recomputed every scheduled run.
func (s *SQLiteStore) UpsertAggregateStat(ctx context.Context, stat models.AggregateStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aggregate_stats (symbol, name, kind, horizon, vol_bucket, rth, adjusted, source, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(symbol, name, kind, horizon, vol_bucket, rth, adjusted, source) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		stat.Symbol, stat.Name, stat.Kind, stat.Horizon, stat.Bucket,
		boolToInt(stat.RTH), boolToInt(stat.Adjusted), stat.Source, stat.Payload)
	if err != nil {
		return fmt.Errorf("upsert aggregate stat: %w", err)
	}
	return nil
}

// GetAggregateStats returns all persisted statistics rows for a symbol.
func (s *SQLiteStore) GetAggregateStats(ctx context.Context, symbol string) ([]models.AggregateStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, name, kind, horizon, vol_bucket, rth, adjusted, source, payload
		FROM aggregate_stats
		WHERE symbol = ?
		ORDER BY kind, name, vol_bucket`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query aggregate stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AggregateStat
	for rows.Next() {
		var st models.AggregateStat
		var rth, adjusted int
		if err := rows.Scan(&st.Symbol, &st.Name, &st.Kind, &st.Horizon, &st.Bucket, &rth, &adjusted, &st.Source, &st.Payload); err != nil {
			return nil, fmt.Errorf("scan aggregate stat: %w", err)
		}
		st.RTH = rth != 0
		st.Adjusted = adjusted != 0
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// LastAlertAt returns when an alert for (symbol, pattern) was last sent.
func (s *SQLiteStore) LastAlertAt(ctx context.Context, symbol, pattern string) (time.Time, bool, error) {
	var sentAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT sent_at FROM alert_log WHERE symbol = ? AND pattern = ?`,
		symbol, pattern).Scan(&sentAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query alert log: %w", err)
	}
	return sentAt, true, nil
}

// MarkAlertSent records the last-sent timestamp for (symbol, pattern).
func (s *SQLiteStore) MarkAlertSent(ctx context.Context, symbol, pattern string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_log (symbol, pattern, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, pattern) DO UPDATE SET sent_at = excluded.sent_at`,
		symbol, pattern, at)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
