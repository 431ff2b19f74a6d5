package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/positionbook/internal/service"
)

// PlanService defines the methods that the plan handler requires.
type PlanService interface {
	CreatePositionWithJournal(ctx context.Context, in service.PlanInput) (service.PlanResult, error)
}

// PlanHandler serves trade plan creation.
type PlanHandler struct {
	plans  PlanService
	logger *slog.Logger
}

// NewPlanHandler creates a PlanHandler.
func NewPlanHandler(plans PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, logger: handlerLogger(logger, "plans")}
}

// CreatePlan creates a planned position together with its plan journal entry.
// POST /api/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var in service.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.plans.CreatePositionWithJournal(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, "create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
