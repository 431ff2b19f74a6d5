package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PriceStore implements domain.PriceCache on the prices table so manual
// prices survive between CLI runs when Redis is off. Rows older than ttl
// read as missing; a ttl of 0 keeps them forever.
type PriceStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Prices returns the price store.
func (d *DB) Prices(ttl time.Duration) *PriceStore {
	return &PriceStore{db: d.db, ttl: ttl, now: time.Now}
}

// SetPrice upserts the latest price for symbol.
func (s *PriceStore) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("sqlite: set price: empty symbol")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (symbol, price, price_ts, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			price = excluded.price, price_ts = excluded.price_ts, updated_at = excluded.updated_at`,
		symbol, decText(price), timeText(ts), timeText(s.now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set price %s: %w", symbol, err)
	}
	return nil
}

// GetPrice returns the stored price for symbol or domain.ErrNotFound.
func (s *PriceStore) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	query, args := s.freshOnly(`SELECT price, price_ts FROM prices WHERE symbol = ?`, []any{symbol})
	var px, ts string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&px, &ts); err != nil {
		return 0, time.Time{}, fmt.Errorf("sqlite: get price %q: %w", symbol, mapError(err))
	}
	price, err := parseDec(px)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("sqlite: price %s: %w", symbol, err)
	}
	at, err := parseTime(ts)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("sqlite: price %s time: %w", symbol, err)
	}
	return price, at, nil
}

// GetPrices returns the stored prices for symbols, omitting missing ones.
func (s *PriceStore) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	args := make([]any, len(symbols))
	for i, sym := range symbols {
		args[i] = sym
	}
	query := `SELECT symbol, price FROM prices WHERE symbol IN (?` + strings.Repeat(", ?", len(symbols)-1) + `)`
	query, args = s.freshOnly(query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sym, px string
		if err := rows.Scan(&sym, &px); err != nil {
			return nil, fmt.Errorf("sqlite: scan price: %w", err)
		}
		price, err := parseDec(px)
		if err != nil {
			return nil, fmt.Errorf("sqlite: price %s: %w", sym, err)
		}
		out[sym] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: get prices: %w", err)
	}
	return out, nil
}

func (s *PriceStore) freshOnly(query string, args []any) (string, []any) {
	if s.ttl <= 0 {
		return query, args
	}
	return query + " AND updated_at >= ?", append(args, timeText(s.now().Add(-s.ttl)))
}

var _ domain.PriceCache = (*PriceStore)(nil)
