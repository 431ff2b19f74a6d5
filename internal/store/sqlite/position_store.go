package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PositionStore implements domain.PositionStore on SQLite.
type PositionStore struct {
	db *sql.DB
}

const positionCols = `id, symbol, strategy_type,
	target_entry_price, target_quantity, profit_target, stop_loss,
	profit_target_basis, stop_loss_basis, position_thesis,
	status, journal_entry_ids,
	option_type, strike_price, expiration_date, premium_per_contract,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var (
		p                                    domain.Position
		strategy, ptBasis, slBasis, status   string
		entry, qty, target, stop             string
		journalIDs, createdAt, updatedAt     string
		optType, strike, expiration, premium sql.NullString
	)
	if err := row.Scan(
		&p.ID, &p.Symbol, &strategy,
		&entry, &qty, &target, &stop,
		&ptBasis, &slBasis, &p.PositionThesis,
		&status, &journalIDs,
		&optType, &strike, &expiration, &premium,
		&createdAt, &updatedAt,
	); err != nil {
		return domain.Position{}, err
	}

	p.StrategyType = domain.StrategyType(strategy)
	p.ProfitTargetBasis = domain.TargetBasis(ptBasis)
	p.StopLossBasis = domain.TargetBasis(slBasis)
	p.Status = domain.PositionStatus(status)

	var err error
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&p.TargetEntryPrice, entry},
		{&p.TargetQuantity, qty},
		{&p.ProfitTarget, target},
		{&p.StopLoss, stop},
	} {
		if *f.dst, err = parseDec(f.src); err != nil {
			return domain.Position{}, fmt.Errorf("position %s: %w", p.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(journalIDs), &p.JournalEntryIDs); err != nil {
		return domain.Position{}, fmt.Errorf("position %s journal ids: %w", p.ID, err)
	}
	if optType.Valid {
		ot := domain.OptionType(optType.String)
		p.OptionType = &ot
	}
	if p.StrikePrice, err = parseNullDec(strike); err != nil {
		return domain.Position{}, err
	}
	if p.PremiumPerContract, err = parseNullDec(premium); err != nil {
		return domain.Position{}, err
	}
	if expiration.Valid {
		exp, err := parseTime(expiration.String)
		if err != nil {
			return domain.Position{}, err
		}
		p.ExpirationDate = &exp
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Position{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

func positionArgs(p domain.Position) ([]any, error) {
	ids := p.JournalEntryIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	var optType, expiration sql.NullString
	if p.OptionType != nil {
		optType = sql.NullString{String: string(*p.OptionType), Valid: true}
	}
	if p.ExpirationDate != nil {
		expiration = sql.NullString{String: timeText(*p.ExpirationDate), Valid: true}
	}

	return []any{
		p.ID, p.Symbol, string(p.StrategyType),
		decText(p.TargetEntryPrice), decText(p.TargetQuantity), decText(p.ProfitTarget), decText(p.StopLoss),
		string(p.ProfitTargetBasis), string(p.StopLossBasis), p.PositionThesis,
		string(p.Status), string(idsJSON),
		optType, nullDec(p.StrikePrice), expiration, nullDec(p.PremiumPerContract),
		timeText(p.CreatedAt), timeText(p.UpdatedAt),
	}, nil
}

// Create inserts a position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	args, err := positionArgs(p)
	if err != nil {
		return fmt.Errorf("sqlite: encode position %s: %w", p.ID, err)
	}
	query := `INSERT INTO positions (` + positionCols + `) VALUES (` +
		strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: create position %s: %w", p.ID, mapError(err))
	}
	return nil
}

// Update replaces all mutable fields of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	args, err := positionArgs(p)
	if err != nil {
		return fmt.Errorf("sqlite: encode position %s: %w", p.ID, err)
	}
	const query = `
		UPDATE positions SET
			symbol = ?, strategy_type = ?,
			target_entry_price = ?, target_quantity = ?, profit_target = ?, stop_loss = ?,
			profit_target_basis = ?, stop_loss_basis = ?, position_thesis = ?,
			status = ?, journal_entry_ids = ?,
			option_type = ?, strike_price = ?, expiration_date = ?, premium_per_contract = ?,
			updated_at = ?
		WHERE id = ?`

	// args[16] is created_at, which never changes.
	updateArgs := append(append([]any{}, args[1:16]...), args[17], args[0])
	res, err := s.db.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("sqlite: update position %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a position and, by cascade, its trades.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete position %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position with its trades in insertion order.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+positionCols+` FROM positions WHERE id = ?`, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("sqlite: get position %s: %w", id, err)
	}
	if p.Trades, err = (&TradeStore{db: s.db}).ListByPosition(ctx, id); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// List returns positions newest first, with their trades.
func (s *PositionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query, args := listClause(`SELECT `+positionCols+` FROM positions WHERE 1=1`, nil, "created_at", "DESC", opts)
	return s.query(ctx, "list positions", query, args...)
}

// ListCreatedBefore returns positions created before the cutoff, oldest first.
func (s *PositionStore) ListCreatedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	return s.query(ctx, "list positions before",
		`SELECT `+positionCols+` FROM positions WHERE created_at < ? ORDER BY created_at ASC`, timeText(before))
}

func (s *PositionStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: %s rows: %w", op, err)
	}
	// Release the single connection before loading trades.
	rows.Close()

	trades := &TradeStore{db: s.db}
	for i := range positions {
		if positions[i].Trades, err = trades.ListByPosition(ctx, positions[i].ID); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
