package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// TradeStore implements domain.TradeStore on SQLite.
type TradeStore struct {
	db *sql.DB
}

// Append inserts a trade; domain.ErrNotFound means the position is missing.
func (s *TradeStore) Append(ctx context.Context, t domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, position_id, direction, quantity, price, executed_at, underlying, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PositionID, string(t.Direction),
		decText(t.Quantity), decText(t.Price), timeText(t.Timestamp),
		t.Underlying, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append trade %s: %w", t.ID, mapError(err))
	}
	return nil
}

// ListByPosition returns a position's trades in insertion order.
func (s *TradeStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position_id, direction, quantity, price, executed_at, underlying, notes
		FROM trades WHERE position_id = ? ORDER BY seq`, positionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list trades for %s: %w", positionID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t                  domain.Trade
			direction, qty, px string
			executedAt         string
		)
		if err := rows.Scan(&t.ID, &t.PositionID, &direction, &qty, &px, &executedAt, &t.Underlying, &t.Notes); err != nil {
			return nil, fmt.Errorf("sqlite: scan trade: %w", err)
		}
		t.Direction = domain.TradeDirection(direction)
		if t.Quantity, err = parseDec(qty); err != nil {
			return nil, fmt.Errorf("sqlite: trade %s quantity: %w", t.ID, err)
		}
		if t.Price, err = parseDec(px); err != nil {
			return nil, fmt.Errorf("sqlite: trade %s price: %w", t.ID, err)
		}
		if t.Timestamp, err = parseTime(executedAt); err != nil {
			return nil, fmt.Errorf("sqlite: trade %s time: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list trades rows: %w", err)
	}
	return trades, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
