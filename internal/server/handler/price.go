package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PriceService defines the methods that the price handler requires.
type PriceService interface {
	Snapshot(ctx context.Context, symbols []string) (domain.PriceSnapshot, error)
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
}

// PriceHandler serves the price snapshot endpoints.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: handlerLogger(logger, "prices")}
}

type setPriceRequest struct {
	Price     float64    `json:"price"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// GetPrices returns the latest known price per symbol. Unknown symbols are
// omitted from the response.
// GET /api/prices?symbols=AAPL,MSFT
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols query parameter required")
		return
	}

	snap, err := h.prices.Snapshot(r.Context(), symbols)
	if err != nil {
		writeServiceError(w, r, h.logger, "get prices", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": snap})
}

// SetPrice records a manual price for a symbol.
// PUT /api/prices/{symbol}
func (h *PriceHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price <= 0 || math.IsInf(req.Price, 0) || math.IsNaN(req.Price) {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	symbol := pathParam(r, "symbol")
	if err := h.prices.SetPrice(r.Context(), symbol, req.Price, ts); err != nil {
		writeServiceError(w, r, h.logger, "set price", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"price":     req.Price,
		"timestamp": ts,
	})
}
