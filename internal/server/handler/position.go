package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/service"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	Get(ctx context.Context, id string) (service.PositionView, error)
	List(ctx context.Context, filter service.ListFilter) ([]service.PositionView, error)
	RecordTrade(ctx context.Context, positionID string, in service.TradeInput) (domain.Trade, error)
	Delete(ctx context.Context, id string) error
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    handlerLogger(logger, "positions"),
	}
}

type listPositionsResponse struct {
	Positions []service.PositionView `json:"positions"`
}

// ListPositions returns positions with their current metrics.
// GET /api/positions?status=open&limit=50&offset=0
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	filter := service.ListFilter{ListOpts: parseListOpts(r)}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = domain.PositionStatus(s)
		if !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, "status must be planned, open or closed")
			return
		}
	}

	views, err := h.positions.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "list positions", err)
		return
	}
	if views == nil {
		views = []service.PositionView{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: views})
}

// GetPosition returns one position with its metrics.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	view, err := h.positions.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get position", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeletePosition removes a position and its journal entries.
// DELETE /api/positions/{id}
func (h *PositionHandler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.positions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete position", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"position_id": id,
	})
}

// RecordTrade appends a trade to a position.
// POST /api/positions/{id}/trades
func (h *PositionHandler) RecordTrade(w http.ResponseWriter, r *http.Request) {
	var in service.TradeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trade, err := h.positions.RecordTrade(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "record trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}
