package prices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/volatility/market"
)

// SQLite is a local price store populated by Import.
type SQLite struct {
	db *sql.DB
}

// TickerRange summarizes what the store holds for one ticker.
type TickerRange struct {
	Ticker string
	First  time.Time
	Last   time.Time
	Count  int
}

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

// Import upserts series under ticker in one transaction.
func (s *SQLite) Import(ctx context.Context, ticker string, series market.PriceSeries) (int, error) {
	if err := series.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (ticker, date, adj_close)
		VALUES (?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET adj_close = excluded.adj_close`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, p := range series {
		if _, err := stmt.ExecContext(ctx, ticker, market.FormatDate(p.Date), p.Close); err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", ticker, market.FormatDate(p.Date), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(series), nil
}

// Prices implements Source.
func (s *SQLite) Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error) {
	if err := checkRequest(ticker, start, end); err != nil {
		return nil, err
	}

	lo, hi := "0000-01-01", "9999-12-31"
	if !start.IsZero() {
		lo = market.FormatDate(start)
	}
	if !end.IsZero() {
		hi = market.FormatDate(end)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, adj_close
		FROM prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`, ticker, lo, hi)
	if err != nil {
		return nil, timeoutErr(ctx, err)
	}
	defer rows.Close()

	var out market.PriceSeries
	for rows.Next() {
		var date string
		var p market.PricePoint
		if err := rows.Scan(&date, &p.Close); err != nil {
			return nil, err
		}
		if p.Date, err = market.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, timeoutErr(ctx, err)
	}
	return finish(ticker, out, start, end)
}

// Tickers lists the stored tickers with their date coverage.
func (s *SQLite) Tickers(ctx context.Context) ([]TickerRange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, MIN(date), MAX(date), COUNT(*)
		FROM prices
		GROUP BY ticker
		ORDER BY ticker ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickerRange
	for rows.Next() {
		var tr TickerRange
		var first, last string
		if err := rows.Scan(&tr.Ticker, &first, &last, &tr.Count); err != nil {
			return nil, err
		}
		if tr.First, err = market.ParseDate(first); err != nil {
			return nil, err
		}
		if tr.Last, err = market.ParseDate(last); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
