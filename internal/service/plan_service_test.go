package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

type planFixture struct {
	db       *memDB
	audit    *memAudit
	bus      *memBus
	notifier *recordingNotifier
	metrics  *telemetry.Metrics
	svc      *PlanService
}

func newPlanFixture() *planFixture {
	f := &planFixture{
		db:       newMemDB(),
		audit:    &memAudit{},
		bus:      newMemBus(),
		notifier: &recordingNotifier{},
		metrics:  telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewPlanService(
		memPositions{f.db}, memJournals{f.db}, &seqIDs{},
		f.bus, f.audit, f.notifier, f.metrics, discardLogger(),
	)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC) }
	return f
}

func (f *planFixture) outcome(o string) float64 {
	return testutil.ToFloat64(f.metrics.PlanTransactions.WithLabelValues(o))
}

func stockPlan() PlanInput {
	return PlanInput{
		Symbol:            "aapl",
		StrategyType:      domain.StrategyLongStock,
		TargetEntryPrice:  150,
		TargetQuantity:    100,
		ProfitTarget:      165,
		StopLoss:          140,
		ProfitTargetBasis: domain.TargetBasisStockPrice,
		StopLossBasis:     domain.TargetBasisStockPrice,
		PositionThesis:    "Breakout above resistance",
	}
}

func TestCreatePositionWithJournal(t *testing.T) {
	f := newPlanFixture()

	res, err := f.svc.CreatePositionWithJournal(context.Background(), stockPlan())
	require.NoError(t, err)

	assert.Equal(t, "pos-1", res.Position.ID)
	assert.Equal(t, "jrn-2", res.Journal.ID)
	assert.Equal(t, "AAPL", res.Position.Symbol)
	assert.Equal(t, domain.PositionStatusPlanned, res.Position.Status)
	assert.Equal(t, []string{res.Journal.ID}, res.Position.JournalEntryIDs)
	assert.Equal(t, res.Position.ID, res.Journal.PositionID)
	assert.Equal(t, domain.JournalEntryPositionPlan, res.Journal.EntryType)
	require.Len(t, res.Journal.Fields, 1)
	assert.Equal(t, "Breakout above resistance", res.Journal.Fields[0].Response)

	stored, err := memPositions{f.db}.GetByID(context.Background(), res.Position.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Journal.ID, stored.JournalEntryIDs[0])
	_, err = memJournals{f.db}.GetByID(context.Background(), res.Journal.ID)
	require.NoError(t, err)

	assert.Equal(t, 1.0, f.outcome(telemetry.OutcomeCommitted))
	assert.Equal(t, 1, f.bus.count(ChannelPlans))
	assert.True(t, f.audit.has("plan_created"))
}

func TestCreatePositionWithJournalRollsBack(t *testing.T) {
	f := newPlanFixture()
	storeErr := errors.New("disk full")
	f.db.createPositionErr = storeErr

	_, err := f.svc.CreatePositionWithJournal(context.Background(), stockPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)

	assert.Empty(t, f.db.journals, "journal entry must be compensated")
	assert.Equal(t, []string{"jrn-2"}, f.db.deletedJournals)
	assert.Empty(t, f.db.positions)
	assert.Equal(t, 1.0, f.outcome(telemetry.OutcomeRolledBack))
	assert.Equal(t, 0.0, f.outcome(telemetry.OutcomeCommitted))
	assert.True(t, f.audit.has("plan_rolled_back"))
	assert.Zero(t, f.bus.count(ChannelPlans))
}

func TestCreatePositionWithJournalRollbackFailureKeepsOriginalError(t *testing.T) {
	f := newPlanFixture()
	storeErr := errors.New("constraint violation")
	f.db.createPositionErr = storeErr
	f.db.deleteJournalErr = errors.New("journal store unavailable")

	_, err := f.svc.CreatePositionWithJournal(context.Background(), stockPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotContains(t, err.Error(), "journal store unavailable")

	assert.Len(t, f.db.journals, 1, "orphaned entry remains")
	assert.Equal(t, 1.0, f.outcome(telemetry.OutcomeRollbackFailed))
	assert.True(t, f.audit.has("plan_rollback_failed"))
	assert.Equal(t, []string{"plan_rollback_failed"}, f.notifier.events)
}

func TestCreatePositionWithJournalCompensatesAfterCancel(t *testing.T) {
	f := newPlanFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.db.createPositionErr = context.Canceled

	_, err := f.svc.CreatePositionWithJournal(ctx, stockPlan())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.db.journals)
}

func TestCreatePositionWithJournalJournalFailure(t *testing.T) {
	f := newPlanFixture()
	f.db.createJournalErr = errors.New("journal down")

	_, err := f.svc.CreatePositionWithJournal(context.Background(), stockPlan())
	assert.ErrorIs(t, err, f.db.createJournalErr)
	assert.Empty(t, f.db.positions)
	assert.Empty(t, f.db.deletedJournals)
	assert.Equal(t, 1.0, f.outcome(telemetry.OutcomeJournalFailed))
}

func TestCreatePositionWithJournalValidation(t *testing.T) {
	f := newPlanFixture()

	in := stockPlan()
	in.Symbol = ""
	in.TargetQuantity = 0

	_, err := f.svc.CreatePositionWithJournal(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
	assert.Contains(t, err.Error(), "symbol is required")
	assert.Contains(t, err.Error(), "target_quantity must be positive")
	assert.Empty(t, f.db.journals)
}

func TestCreatePositionWithJournalShortPut(t *testing.T) {
	f := newPlanFixture()

	put := domain.OptionTypePut
	strike := 145.0
	premium := 3.2
	exp := time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)
	in := PlanInput{
		Symbol:             "AAPL",
		StrategyType:       domain.StrategyShortPut,
		TargetEntryPrice:   3.2,
		TargetQuantity:     1,
		ProfitTargetBasis:  domain.TargetBasisOptionPrice,
		StopLossBasis:      domain.TargetBasisStockPrice,
		OptionType:         &put,
		StrikePrice:        &strike,
		ExpirationDate:     &exp,
		PremiumPerContract: &premium,
		JournalFields: []domain.JournalField{
			{Name: "thesis", Prompt: "Why?", Response: "Collect premium", Required: true},
			{Name: "exit", Prompt: "Exit plan?", Response: "50% of max profit"},
		},
	}

	res, err := f.svc.CreatePositionWithJournal(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, res.Journal.Fields, 2)
	assert.Equal(t, "AAPL  260619P00145000", res.Position.TradeUnderlying())

	in.StrikePrice = nil
	_, err = f.svc.CreatePositionWithJournal(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
}
