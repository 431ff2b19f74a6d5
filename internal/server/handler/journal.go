package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// JournalService defines the methods that the journal handler requires.
type JournalService interface {
	Get(ctx context.Context, id string) (domain.JournalEntry, error)
	ListByPosition(ctx context.Context, positionID string) ([]domain.JournalEntry, error)
}

// JournalHandler serves journal entries.
type JournalHandler struct {
	journals JournalService
	logger   *slog.Logger
}

// NewJournalHandler creates a JournalHandler.
func NewJournalHandler(journals JournalService, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{journals: journals, logger: handlerLogger(logger, "journal")}
}

type listJournalResponse struct {
	Entries []domain.JournalEntry `json:"entries"`
}

// ListByPosition returns a position's journal entries, oldest first.
// GET /api/positions/{id}/journal
func (h *JournalHandler) ListByPosition(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journals.ListByPosition(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "list journal", err)
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, listJournalResponse{Entries: entries})
}

// GetEntry returns one journal entry.
// GET /api/journal/{id}
func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journals.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
