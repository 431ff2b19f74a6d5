package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PriceStore implements domain.PriceCache on the prices table. It stands
// in for Redis so manual prices are shared and outlive the process. Rows
// older than ttl read as missing; a ttl of 0 keeps them forever.
type PriceStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPriceStore creates a PriceStore.
func NewPriceStore(pool *pgxpool.Pool, ttl time.Duration) *PriceStore {
	return &PriceStore{pool: pool, ttl: ttl}
}

// SetPrice upserts the latest price for symbol.
func (s *PriceStore) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("postgres: set price: empty symbol")
	}
	const query = `
		INSERT INTO prices (symbol, price, price_ts, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			price = EXCLUDED.price, price_ts = EXCLUDED.price_ts, updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, symbol, price, ts); err != nil {
		return fmt.Errorf("postgres: set price %s: %w", symbol, err)
	}
	return nil
}

// GetPrice returns the stored price for symbol or domain.ErrNotFound.
func (s *PriceStore) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	query := `SELECT price, price_ts FROM prices WHERE symbol = $1` + s.freshClause(2)
	var (
		price float64
		ts    time.Time
	)
	if err := s.pool.QueryRow(ctx, query, s.args(symbol)...).Scan(&price, &ts); err != nil {
		return 0, time.Time{}, fmt.Errorf("postgres: get price %q: %w", symbol, mapError(err))
	}
	return price, ts, nil
}

// GetPrices returns the stored prices for symbols, omitting missing ones.
func (s *PriceStore) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	query := `SELECT symbol, price FROM prices WHERE symbol = ANY($1)` + s.freshClause(2)
	rows, err := s.pool.Query(ctx, query, s.args(symbols)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: get prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sym   string
			price float64
		)
		if err := rows.Scan(&sym, &price); err != nil {
			return nil, fmt.Errorf("postgres: scan price: %w", err)
		}
		out[sym] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: get prices: %w", err)
	}
	return out, nil
}

func (s *PriceStore) freshClause(argIdx int) string {
	if s.ttl <= 0 {
		return ""
	}
	return fmt.Sprintf(" AND updated_at >= NOW() - $%d::interval", argIdx)
}

func (s *PriceStore) args(first any) []any {
	if s.ttl <= 0 {
		return []any{first}
	}
	return []any{first, s.ttl}
}

var _ domain.PriceCache = (*PriceStore)(nil)
