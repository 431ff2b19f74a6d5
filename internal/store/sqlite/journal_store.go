package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// JournalStore implements domain.JournalStore on SQLite.
type JournalStore struct {
	db *sql.DB
}

type fieldJSON struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Required bool   `json:"required"`
}

func scanJournal(row rowScanner) (domain.JournalEntry, error) {
	var (
		e                    domain.JournalEntry
		entryType, fields    string
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.PositionID, &e.TradeID, &entryType, &fields, &createdAt, &updatedAt); err != nil {
		return domain.JournalEntry{}, err
	}
	e.EntryType = domain.JournalEntryType(entryType)

	var raw []fieldJSON
	if err := json.Unmarshal([]byte(fields), &raw); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal %s fields: %w", e.ID, err)
	}
	e.Fields = make([]domain.JournalField, len(raw))
	for i, f := range raw {
		e.Fields[i] = domain.JournalField(f)
	}

	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.JournalEntry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.JournalEntry{}, err
	}
	return e, nil
}

// Create inserts a journal entry.
func (s *JournalStore) Create(ctx context.Context, e domain.JournalEntry) error {
	raw := make([]fieldJSON, len(e.Fields))
	for i, f := range e.Fields {
		raw[i] = fieldJSON(f)
	}
	fields, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("sqlite: encode journal fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, position_id, trade_id, entry_type, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PositionID, e.TradeID, string(e.EntryType), string(fields),
		timeText(e.CreatedAt), timeText(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create journal entry %s: %w", e.ID, mapError(err))
	}
	return nil
}

// GetByID retrieves a journal entry.
func (s *JournalStore) GetByID(ctx context.Context, id string) (domain.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, position_id, trade_id, entry_type, fields, created_at, updated_at
		FROM journal_entries WHERE id = ?`, id)
	e, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.JournalEntry{}, domain.ErrNotFound
		}
		return domain.JournalEntry{}, fmt.Errorf("sqlite: get journal entry %s: %w", id, err)
	}
	return e, nil
}

// Delete removes a journal entry.
func (s *JournalStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete journal entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByPosition returns a position's journal entries, oldest first.
func (s *JournalStore) ListByPosition(ctx context.Context, positionID string) ([]domain.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position_id, trade_id, entry_type, fields, created_at, updated_at
		FROM journal_entries WHERE position_id = ? ORDER BY created_at, id`, positionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list journal entries for %s: %w", positionID, err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list journal entries rows: %w", err)
	}
	return entries, nil
}

var _ domain.JournalStore = (*JournalStore)(nil)
