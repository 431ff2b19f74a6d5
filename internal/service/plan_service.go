package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

// rollbackTimeout bounds the compensating journal delete, which runs detached
// from the caller's context.
const rollbackTimeout = 10 * time.Second

// PlanState is a step of the position+journal create sequence.
type PlanState string

const (
	PlanNotStarted      PlanState = "not_started"
	PlanJournalCreated  PlanState = "journal_created"
	PlanPositionCreated PlanState = "position_created"
	PlanRolledBack      PlanState = "rolled_back"
	PlanRollbackFailed  PlanState = "rollback_failed"
)

// PlanResult is the outcome of a committed plan.
type PlanResult struct {
	Position domain.Position     `json:"position"`
	Journal  domain.JournalEntry `json:"journal"`
}

// PlanService creates positions together with their originating journal
// entry. The two stores share no transaction: the journal entry is written
// first and deleted again if the position cannot be written. A crash between
// the two writes can leave an orphaned journal entry.
type PlanService struct {
	positions domain.PositionStore
	journals  domain.JournalStore
	ids       domain.IDGenerator
	metrics   *telemetry.Metrics
	effects   sideEffects
	logger    *slog.Logger
	now       func() time.Time
}

// NewPlanService creates a PlanService. bus, audit, notifier and metrics may
// be nil.
func NewPlanService(
	positions domain.PositionStore,
	journals domain.JournalStore,
	ids domain.IDGenerator,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *PlanService {
	return &PlanService{
		positions: positions,
		journals:  journals,
		ids:       ids,
		metrics:   metrics,
		effects: sideEffects{
			name:     "plan_service",
			bus:      bus,
			audit:    audit,
			notifier: notifier,
			logger:   logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

// planTx tracks one run of the create sequence.
type planTx struct {
	state      PlanState
	positionID string
	journalID  string
}

func (s *PlanService) advance(ctx context.Context, tx *planTx, next PlanState) {
	s.logger.DebugContext(ctx, "plan_service: state transition",
		slog.String("position_id", tx.positionID),
		slog.String("journal_id", tx.journalID),
		slog.String("from", string(tx.state)),
		slog.String("to", string(next)),
	)
	tx.state = next
}

// CreatePositionWithJournal validates in, then writes a position_plan journal
// entry tagged with the new position's ID followed by the position tagged
// with the entry's ID. If the position write fails the journal entry is
// deleted and the position store's error is returned; a failed delete is
// reported but never replaces that error.
func (s *PlanService) CreatePositionWithJournal(ctx context.Context, in PlanInput) (PlanResult, error) {
	if err := ValidatePlan(in); err != nil {
		return PlanResult{}, fmt.Errorf("plan_service: %w", err)
	}

	tx := &planTx{
		state:      PlanNotStarted,
		positionID: s.ids.PositionID(),
		journalID:  s.ids.JournalID(),
	}
	now := s.now().UTC()

	entry := domain.JournalEntry{
		ID:         tx.journalID,
		PositionID: tx.positionID,
		EntryType:  domain.JournalEntryPositionPlan,
		Fields:     planFields(in),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.journals.Create(ctx, entry); err != nil {
		s.metrics.PlanOutcome(telemetry.OutcomeJournalFailed)
		return PlanResult{}, fmt.Errorf("plan_service: create journal entry: %w", err)
	}
	s.advance(ctx, tx, PlanJournalCreated)

	pos := planPosition(in, tx, now)
	if err := s.positions.Create(ctx, pos); err != nil {
		s.rollback(ctx, tx, err)
		return PlanResult{}, fmt.Errorf("plan_service: create position: %w", err)
	}
	s.advance(ctx, tx, PlanPositionCreated)
	s.metrics.PlanOutcome(telemetry.OutcomeCommitted)

	s.effects.publish(ctx, ChannelPlans, map[string]any{
		"event":       "plan_created",
		"position_id": pos.ID,
		"journal_id":  entry.ID,
		"symbol":      pos.Symbol,
		"strategy":    string(pos.StrategyType),
	})
	s.effects.auditLog(ctx, "plan_created", map[string]any{
		"position_id":        pos.ID,
		"journal_id":         entry.ID,
		"symbol":             pos.Symbol,
		"strategy":           string(pos.StrategyType),
		"target_entry_price": pos.TargetEntryPrice,
		"target_quantity":    pos.TargetQuantity,
	})

	s.logger.InfoContext(ctx, "plan_service: plan created",
		slog.String("position_id", pos.ID),
		slog.String("journal_id", entry.ID),
		slog.String("symbol", pos.Symbol),
	)

	return PlanResult{Position: pos, Journal: entry}, nil
}

// rollback deletes the journal entry written for tx. It runs on a context
// detached from cancellation so an abandoned request still compensates.
func (s *PlanService) rollback(ctx context.Context, tx *planTx, cause error) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	s.logger.WarnContext(ctx, "plan_service: position create failed, rolling back journal entry",
		slog.String("position_id", tx.positionID),
		slog.String("journal_id", tx.journalID),
		slog.String("error", cause.Error()),
	)

	if err := s.journals.Delete(rbCtx, tx.journalID); err != nil {
		s.advance(ctx, tx, PlanRollbackFailed)
		s.metrics.PlanOutcome(telemetry.OutcomeRollbackFailed)
		s.logger.ErrorContext(ctx, "plan_service: rollback failed, journal entry orphaned",
			slog.String("position_id", tx.positionID),
			slog.String("journal_id", tx.journalID),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
		s.effects.auditLog(rbCtx, "plan_rollback_failed", map[string]any{
			"position_id": tx.positionID,
			"journal_id":  tx.journalID,
			"cause":       cause.Error(),
			"error":       err.Error(),
		})
		s.effects.notify(rbCtx, "plan_rollback_failed", "Orphaned journal entry",
			fmt.Sprintf("Journal entry %s for position %s could not be removed after a failed create: %v",
				tx.journalID, tx.positionID, err))
		return
	}

	s.advance(ctx, tx, PlanRolledBack)
	s.metrics.PlanOutcome(telemetry.OutcomeRolledBack)
	s.effects.auditLog(rbCtx, "plan_rolled_back", map[string]any{
		"position_id": tx.positionID,
		"journal_id":  tx.journalID,
		"cause":       cause.Error(),
	})
}

func planPosition(in PlanInput, tx *planTx, now time.Time) domain.Position {
	return domain.Position{
		ID:                 tx.positionID,
		Symbol:             strings.ToUpper(strings.TrimSpace(in.Symbol)),
		StrategyType:       in.StrategyType,
		TargetEntryPrice:   in.TargetEntryPrice,
		TargetQuantity:     in.TargetQuantity,
		ProfitTarget:       in.ProfitTarget,
		StopLoss:           in.StopLoss,
		ProfitTargetBasis:  in.ProfitTargetBasis,
		StopLossBasis:      in.StopLossBasis,
		PositionThesis:     in.PositionThesis,
		CreatedAt:          now,
		UpdatedAt:          now,
		Status:             domain.PositionStatusPlanned,
		JournalEntryIDs:    []string{tx.journalID},
		OptionType:         in.OptionType,
		StrikePrice:        in.StrikePrice,
		ExpirationDate:     in.ExpirationDate,
		PremiumPerContract: in.PremiumPerContract,
	}
}

func planFields(in PlanInput) []domain.JournalField {
	if len(in.JournalFields) > 0 {
		return in.JournalFields
	}
	return []domain.JournalField{{
		Name:     "thesis",
		Prompt:   "Why are you planning this trade?",
		Response: in.PositionThesis,
		Required: true,
	}}
}
