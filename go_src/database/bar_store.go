package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fyersbot/go_src/market_history"
)

// BarStore keeps daily bars in the daily_bars table. It satisfies market_history.BarStore.
type BarStore struct {
	mdb *MarketDB
}

var _ market_history.BarStore = (*BarStore)(nil)

// NewBarStore creates the schema when it is missing.
func NewBarStore(mdb *MarketDB) (*BarStore, error) {
	s := &BarStore{mdb: mdb}
	if err := s.CreateSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BarStore) CreateSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_bars (
		symbol VARCHAR NOT NULL,
		trade_date DATE NOT NULL,
		bar_time VARCHAR,
		open DOUBLE,
		high DOUBLE,
		low DOUBLE,
		close DOUBLE,
		volume DOUBLE,
		filled BOOLEAN DEFAULT FALSE,
		updated_at TIMESTAMP,
		PRIMARY KEY (symbol, trade_date)
	);`
	if _, err := s.mdb.DB().Exec(schema); err != nil {
		return fmt.Errorf("failed to create daily_bars schema: %w", err)
	}
	return nil
}

// SaveBars upserts bars in one transaction.
func (s *BarStore) SaveBars(ctx context.Context, bars []market_history.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.mdb.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO daily_bars (symbol, trade_date, bar_time, open, high, low, close, volume, filled, updated_at)
	VALUES (?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bar upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.DateString(), b.Time, b.Open, b.High, b.Low, b.Close, b.Volume, b.Filled, now); err != nil {
			return fmt.Errorf("failed to upsert bar %s %s: %w", b.Symbol, b.DateString(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars: %w", err)
	}
	return nil
}

// LastDate returns the newest stored date for symbol.
func (s *BarStore) LastDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var last sql.NullString
	err := s.mdb.DB().QueryRowContext(ctx,
		`SELECT strftime(max(trade_date), '%Y-%m-%d') FROM daily_bars WHERE symbol = ?`, symbol).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last date for %s: %w", symbol, err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	day, err := market_history.ParseDay(last.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return day, true, nil
}

// LoadBars returns symbol's bars in [from, to] ordered by date.
func (s *BarStore) LoadBars(ctx context.Context, symbol string, from, to time.Time) ([]market_history.Bar, error) {
	return s.query(ctx, `
	SELECT symbol, strftime(trade_date, '%Y-%m-%d'), bar_time, open, high, low, close, volume, filled
	FROM daily_bars
	WHERE symbol = ? AND trade_date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)
	ORDER BY trade_date`,
		symbol, market_history.Day(from).Format("2006-01-02"), market_history.Day(to).Format("2006-01-02"))
}

func (s *BarStore) AllBars(ctx context.Context) ([]market_history.Bar, error) {
	return s.query(ctx, `
	SELECT symbol, strftime(trade_date, '%Y-%m-%d'), bar_time, open, high, low, close, volume, filled
	FROM daily_bars
	ORDER BY symbol, trade_date`)
}

// Symbols lists every symbol with stored bars.
func (s *BarStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.mdb.DB().QueryContext(ctx, `SELECT DISTINCT symbol FROM daily_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *BarStore) query(ctx context.Context, q string, args ...interface{}) ([]market_history.Bar, error) {
	rows, err := s.mdb.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []market_history.Bar
	for rows.Next() {
		var (
			b       market_history.Bar
			date    string
			barTime sql.NullString
		)
		if err := rows.Scan(&b.Symbol, &date, &barTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Filled); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		if b.Date, err = market_history.ParseDay(date); err != nil {
			return nil, err
		}
		b.Time = barTime.String
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
