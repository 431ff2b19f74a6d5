package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/position"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

// tradeLockTTL bounds how long a trade append may hold the position lock.
const tradeLockTTL = 15 * time.Second

// PriceSource produces price snapshots. *PriceService satisfies it.
type PriceSource interface {
	Snapshot(ctx context.Context, symbols []string) (domain.PriceSnapshot, error)
}

// PositionView is a position with its status and metrics recomputed from the
// trade log at read time.
type PositionView struct {
	Position domain.Position      `json:"position"`
	Metrics  position.Metrics     `json:"metrics"`
	Prices   domain.PriceSnapshot `json:"prices"`
}

// ListFilter narrows a position listing. Status is matched against the
// recomputed status, after pagination by the store.
type ListFilter struct {
	domain.ListOpts
	Status domain.PositionStatus
}

// PositionService serves the read path of positions and appends trades.
type PositionService struct {
	positions domain.PositionStore
	trades    domain.TradeStore
	journals  domain.JournalStore
	prices    PriceSource
	locks     domain.LockManager
	ids       domain.IDGenerator
	metrics   *telemetry.Metrics
	effects   sideEffects
	logger    *slog.Logger
	now       func() time.Time
}

// NewPositionService creates a PositionService. locks, bus, audit, notifier
// and metrics may be nil.
func NewPositionService(
	positions domain.PositionStore,
	trades domain.TradeStore,
	journals domain.JournalStore,
	prices PriceSource,
	locks domain.LockManager,
	ids domain.IDGenerator,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *PositionService {
	return &PositionService{
		positions: positions,
		trades:    trades,
		journals:  journals,
		prices:    prices,
		locks:     locks,
		ids:       ids,
		metrics:   metrics,
		effects: sideEffects{
			name:     "position_service",
			bus:      bus,
			audit:    audit,
			notifier: notifier,
			logger:   logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Get loads a position and projects its status and metrics.
func (s *PositionService) Get(ctx context.Context, id string) (PositionView, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return PositionView{}, fmt.Errorf("position_service: get position %q: %w", id, err)
	}
	return s.view(ctx, pos), nil
}

// List loads a page of positions and projects each one.
func (s *PositionService) List(ctx context.Context, filter ListFilter) ([]PositionView, error) {
	positions, err := s.positions.List(ctx, filter.ListOpts)
	if err != nil {
		return nil, fmt.Errorf("position_service: list positions: %w", err)
	}

	var symbols []string
	for _, p := range positions {
		symbols = append(symbols, p.Underlyings()...)
	}
	prices := s.snapshot(ctx, symbols)

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		v := s.project(p, prices)
		if filter.Status != "" && v.Position.Status != filter.Status {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// RecordTrade appends a trade to a position's log under the position lock,
// then refreshes the advisory status and announces any status transition.
// Without a lock manager concurrent trades on one position may lose journal
// entry IDs on the advisory record; the trade log itself is never lost.
func (s *PositionService) RecordTrade(ctx context.Context, positionID string, in TradeInput) (domain.Trade, error) {
	if err := ValidateTrade(in); err != nil {
		return domain.Trade{}, fmt.Errorf("position_service: %w", err)
	}

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "position:"+positionID, tradeLockTTL)
		if err != nil {
			return domain.Trade{}, fmt.Errorf("position_service: lock position %q: %w", positionID, err)
		}
		defer unlock()
	}

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("position_service: get position %q: %w", positionID, err)
	}

	now := s.now().UTC()
	trade := domain.Trade{
		ID:         s.ids.TradeID(),
		PositionID: pos.ID,
		Direction:  in.Direction,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Timestamp:  now,
		Underlying: in.Underlying,
		Notes:      in.Notes,
	}
	if in.Timestamp != nil {
		trade.Timestamp = in.Timestamp.UTC()
	}
	if trade.Underlying == "" {
		trade.Underlying = pos.TradeUnderlying()
	}

	if err := s.trades.Append(ctx, trade); err != nil {
		return domain.Trade{}, fmt.Errorf("position_service: append trade to %q: %w", pos.ID, err)
	}
	s.metrics.TradeRecorded(string(trade.Direction))

	before, after := s.transition(ctx, &pos, trade)

	if len(in.JournalFields) > 0 {
		entry := domain.JournalEntry{
			ID:         s.ids.JournalID(),
			PositionID: pos.ID,
			TradeID:    trade.ID,
			EntryType:  domain.JournalEntryTradeExecution,
			Fields:     in.JournalFields,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.journals.Create(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "position_service: trade journal entry failed",
				slog.String("position_id", pos.ID),
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		} else {
			pos.JournalEntryIDs = append(pos.JournalEntryIDs, entry.ID)
		}
	}

	// The stored status is only a hint; a failed refresh does not undo the
	// trade, readers recompute it anyway.
	pos.Status = after
	pos.UpdatedAt = now
	if err := s.positions.Update(ctx, pos); err != nil {
		s.logger.WarnContext(ctx, "position_service: status hint update failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}

	s.effects.publish(ctx, ChannelTrades, map[string]any{
		"event":       "trade_recorded",
		"position_id": pos.ID,
		"trade_id":    trade.ID,
		"direction":   string(trade.Direction),
		"quantity":    trade.Quantity,
		"price":       trade.Price,
		"underlying":  trade.Underlying,
		"timestamp":   trade.Timestamp.Format(time.RFC3339Nano),
	})
	s.effects.auditLog(ctx, "trade_recorded", map[string]any{
		"position_id": pos.ID,
		"trade_id":    trade.ID,
		"direction":   string(trade.Direction),
		"quantity":    trade.Quantity,
		"price":       trade.Price,
	})

	if before != after {
		s.announceTransition(ctx, pos, before, after)
	}

	s.logger.InfoContext(ctx, "position_service: trade recorded",
		slog.String("position_id", pos.ID),
		slog.String("trade_id", trade.ID),
		slog.String("direction", string(trade.Direction)),
		slog.Float64("quantity", trade.Quantity),
		slog.Float64("price", trade.Price),
		slog.String("status", string(after)),
	)

	return trade, nil
}

// transition reloads the trade log after trade was appended and returns the
// status without and with it. Writers that bypassed the position lock are
// therefore reflected. pos.Trades is replaced by the reloaded log.
func (s *PositionService) transition(ctx context.Context, pos *domain.Position, trade domain.Trade) (before, after domain.PositionStatus) {
	trades, err := s.trades.ListByPosition(ctx, pos.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "position_service: reload trades failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
		before = position.ComputeStatus(pos.Trades)
		pos.Trades = append(pos.Trades, trade)
		return before, position.ComputeStatus(pos.Trades)
	}

	others := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ID != trade.ID {
			others = append(others, t)
		}
	}
	pos.Trades = trades
	return position.ComputeStatus(others), position.ComputeStatus(trades)
}

// Delete removes a position, its trades, and its journal entries.
func (s *PositionService) Delete(ctx context.Context, id string) error {
	entries, err := s.journals.ListByPosition(ctx, id)
	if err != nil {
		return fmt.Errorf("position_service: list journal for %q: %w", id, err)
	}
	if err := s.positions.Delete(ctx, id); err != nil {
		return fmt.Errorf("position_service: delete position %q: %w", id, err)
	}
	for _, e := range entries {
		if err := s.journals.Delete(ctx, e.ID); err != nil {
			s.logger.WarnContext(ctx, "position_service: delete journal entry failed",
				slog.String("position_id", id),
				slog.String("journal_id", e.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.effects.publish(ctx, ChannelPositions, map[string]any{
		"event":       "position_deleted",
		"position_id": id,
	})
	s.effects.auditLog(ctx, "position_deleted", map[string]any{
		"position_id":     id,
		"journal_entries": len(entries),
	})
	return nil
}

func (s *PositionService) announceTransition(ctx context.Context, pos domain.Position, before, after domain.PositionStatus) {
	var event string
	switch after {
	case domain.PositionStatusOpen:
		event = "position_opened"
	case domain.PositionStatusClosed:
		event = "position_closed"
	default:
		return
	}

	s.effects.publish(ctx, ChannelPositions, map[string]any{
		"event":       event,
		"position_id": pos.ID,
		"symbol":      pos.Symbol,
		"from":        string(before),
		"to":          string(after),
	})
	s.effects.notify(ctx, event, fmt.Sprintf("%s %s", pos.Symbol, after),
		fmt.Sprintf("Position %s (%s) moved from %s to %s", pos.ID, pos.StrategyType, before, after))
}

func (s *PositionService) view(ctx context.Context, pos domain.Position) PositionView {
	return s.project(pos, s.snapshot(ctx, pos.Underlyings()))
}

func (s *PositionService) project(pos domain.Position, prices domain.PriceSnapshot) PositionView {
	start := time.Now()
	pos = position.Project(pos)
	m := position.CalculateMetrics(pos, prices)
	s.metrics.ObserveMetrics(start)

	own := make(domain.PriceSnapshot)
	for _, sym := range pos.Underlyings() {
		if p, ok := prices[sym]; ok {
			own[sym] = p
		}
	}
	return PositionView{Position: pos, Metrics: m, Prices: own}
}

// snapshot degrades to an empty snapshot when prices are unavailable, which
// surfaces as unknown P&L.
func (s *PositionService) snapshot(ctx context.Context, symbols []string) domain.PriceSnapshot {
	if s.prices == nil || len(symbols) == 0 {
		return domain.PriceSnapshot{}
	}
	snap, err := s.prices.Snapshot(ctx, symbols)
	if err != nil {
		s.logger.WarnContext(ctx, "position_service: price snapshot failed",
			slog.String("error", err.Error()),
		)
		return domain.PriceSnapshot{}
	}
	return snap
}
