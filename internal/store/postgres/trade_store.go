package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Rows are only
// ever inserted; the seq column records insertion order.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, position_id, direction, quantity, price, executed_at, underlying, notes`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction string
		if err := rows.Scan(
			&t.ID, &t.PositionID, &direction,
			&t.Quantity, &t.Price, &t.Timestamp,
			&t.Underlying, &t.Notes,
		); err != nil {
			return nil, err
		}
		t.Direction = domain.TradeDirection(direction)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Append inserts a trade. It returns domain.ErrNotFound when the owning
// position does not exist.
func (s *TradeStore) Append(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (` + tradeSelectCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.PositionID, string(t.Direction),
		t.Quantity, t.Price, t.Timestamp,
		t.Underlying, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: append trade %s: %w", t.ID, mapError(err))
	}
	return nil
}

// ListByPosition returns a position's trades in insertion order.
func (s *TradeStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE position_id = $1 ORDER BY seq`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", positionID, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for %s: %w", positionID, err)
	}
	return trades, nil
}

func (s *TradeStore) listByPositions(ctx context.Context, positionIDs []string) (map[string][]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE position_id = ANY($1) ORDER BY seq`, positionIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}

	out := make(map[string][]domain.Trade, len(positionIDs))
	for _, t := range trades {
		out[t.PositionID] = append(out[t.PositionID], t)
	}
	return out, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
