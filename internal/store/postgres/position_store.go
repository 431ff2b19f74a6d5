package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. Trades are
// loaded from the trades table in insertion order.
type PositionStore struct {
	pool   *pgxpool.Pool
	trades *TradeStore
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool, trades: NewTradeStore(pool)}
}

const positionSelectCols = `id, symbol, strategy_type,
	target_entry_price, target_quantity, profit_target, stop_loss,
	profit_target_basis, stop_loss_basis, position_thesis,
	status, journal_entry_ids,
	option_type, strike_price, expiration_date, premium_per_contract,
	created_at, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		p                          domain.Position
		strategy, ptBasis, slBasis string
		status                     string
		optType                    *string
	)
	err := row.Scan(
		&p.ID, &p.Symbol, &strategy,
		&p.TargetEntryPrice, &p.TargetQuantity, &p.ProfitTarget, &p.StopLoss,
		&ptBasis, &slBasis, &p.PositionThesis,
		&status, &p.JournalEntryIDs,
		&optType, &p.StrikePrice, &p.ExpirationDate, &p.PremiumPerContract,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.StrategyType = domain.StrategyType(strategy)
	p.ProfitTargetBasis = domain.TargetBasis(ptBasis)
	p.StopLossBasis = domain.TargetBasis(slBasis)
	p.Status = domain.PositionStatus(status)
	if optType != nil {
		ot := domain.OptionType(*optType)
		p.OptionType = &ot
	}
	return p, nil
}

func positionArgs(p domain.Position) []any {
	var optType *string
	if p.OptionType != nil {
		s := string(*p.OptionType)
		optType = &s
	}
	ids := p.JournalEntryIDs
	if ids == nil {
		ids = []string{}
	}
	return []any{
		p.ID, p.Symbol, string(p.StrategyType),
		p.TargetEntryPrice, p.TargetQuantity, p.ProfitTarget, p.StopLoss,
		string(p.ProfitTargetBasis), string(p.StopLossBasis), p.PositionThesis,
		string(p.Status), ids,
		optType, p.StrikePrice, p.ExpirationDate, p.PremiumPerContract,
		p.CreatedAt, p.UpdatedAt,
	}
}

// Create inserts a new position. Its Trades are ignored; trades are written
// through the TradeStore.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `INSERT INTO positions (` + positionSelectCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	if _, err := s.pool.Exec(ctx, query, positionArgs(p)...); err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, mapError(err))
	}
	return nil
}

// Update replaces all mutable fields of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			symbol               = $2,
			strategy_type        = $3,
			target_entry_price   = $4,
			target_quantity      = $5,
			profit_target        = $6,
			stop_loss            = $7,
			profit_target_basis  = $8,
			stop_loss_basis      = $9,
			position_thesis      = $10,
			status               = $11,
			journal_entry_ids    = $12,
			option_type          = $13,
			strike_price         = $14,
			expiration_date      = $15,
			premium_per_contract = $16,
			updated_at           = $17
		WHERE id = $1`

	args := positionArgs(p)
	args = append(args[:16], p.UpdatedAt) // created_at is immutable
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a position; its trades are removed by cascade.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position with its trades.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}

	if p.Trades, err = s.trades.ListByPosition(ctx, id); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// List returns positions, newest first, with their trades.
func (s *PositionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query, args := appendListOpts(
		`SELECT `+positionSelectCols+` FROM positions WHERE 1=1`, nil, 1,
		"created_at", "DESC", opts)
	return s.query(ctx, "list positions", query, args...)
}

// ListCreatedBefore returns every position created before the cutoff, oldest
// first, with their trades.
func (s *PositionStore) ListCreatedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	return s.query(ctx, "list positions before", `SELECT `+positionSelectCols+`
		FROM positions WHERE created_at < $1 ORDER BY created_at ASC`, before)
}

func (s *PositionStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var (
		positions []domain.Position
		ids       []string
	)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	if len(ids) == 0 {
		return positions, nil
	}

	byPosition, err := s.trades.listByPositions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		positions[i].Trades = byPosition[positions[i].ID]
	}
	return positions, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
