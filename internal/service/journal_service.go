package service

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// JournalService reads journal entries.
type JournalService struct {
	journals domain.JournalStore
}

// NewJournalService creates a JournalService.
func NewJournalService(journals domain.JournalStore) *JournalService {
	return &JournalService{journals: journals}
}

// Get returns one journal entry.
func (s *JournalService) Get(ctx context.Context, id string) (domain.JournalEntry, error) {
	e, err := s.journals.GetByID(ctx, id)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("journal_service: get entry %q: %w", id, err)
	}
	return e, nil
}

// ListByPosition returns a position's journal entries, oldest first.
func (s *JournalService) ListByPosition(ctx context.Context, positionID string) ([]domain.JournalEntry, error) {
	entries, err := s.journals.ListByPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("journal_service: list entries for %q: %w", positionID, err)
	}
	return entries, nil
}
