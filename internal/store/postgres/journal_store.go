package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// JournalStore implements domain.JournalStore using PostgreSQL. Fields are
// stored as a JSONB array.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a new JournalStore backed by the given pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

const journalSelectCols = `id, position_id, trade_id, entry_type, fields, created_at, updated_at`

type journalFieldJSON struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Required bool   `json:"required"`
}

func encodeFields(fields []domain.JournalField) ([]byte, error) {
	out := make([]journalFieldJSON, len(fields))
	for i, f := range fields {
		out[i] = journalFieldJSON(f)
	}
	return json.Marshal(out)
}

func decodeFields(data []byte) ([]domain.JournalField, error) {
	var in []journalFieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	out := make([]domain.JournalField, len(in))
	for i, f := range in {
		out[i] = domain.JournalField(f)
	}
	return out, nil
}

func scanJournal(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	var entryType string
	var fields []byte
	if err := row.Scan(&e.ID, &e.PositionID, &e.TradeID, &entryType, &fields, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.JournalEntry{}, err
	}
	e.EntryType = domain.JournalEntryType(entryType)

	var err error
	if e.Fields, err = decodeFields(fields); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("decode fields of %s: %w", e.ID, err)
	}
	return e, nil
}

// Create inserts a journal entry.
func (s *JournalStore) Create(ctx context.Context, e domain.JournalEntry) error {
	fields, err := encodeFields(e.Fields)
	if err != nil {
		return fmt.Errorf("postgres: marshal journal fields: %w", err)
	}

	const query = `INSERT INTO journal_entries (` + journalSelectCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.pool.Exec(ctx, query,
		e.ID, e.PositionID, e.TradeID, string(e.EntryType), fields, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("postgres: create journal entry %s: %w", e.ID, mapError(err))
	}
	return nil
}

// GetByID retrieves a journal entry.
func (s *JournalStore) GetByID(ctx context.Context, id string) (domain.JournalEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+journalSelectCols+` FROM journal_entries WHERE id = $1`, id)
	e, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JournalEntry{}, domain.ErrNotFound
		}
		return domain.JournalEntry{}, fmt.Errorf("postgres: get journal entry %s: %w", id, err)
	}
	return e, nil
}

// Delete removes a journal entry.
func (s *JournalStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete journal entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByPosition returns a position's journal entries, oldest first.
func (s *JournalStore) ListByPosition(ctx context.Context, positionID string) ([]domain.JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+journalSelectCols+` FROM journal_entries
		 WHERE position_id = $1 ORDER BY created_at, id`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal entries for %s: %w", positionID, err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list journal entries rows: %w", err)
	}
	return entries, nil
}

var _ domain.JournalStore = (*JournalStore)(nil)
