package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func TestValidatePlan(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePlan(stockPlan()))

	tests := []struct {
		name   string
		mutate func(*PlanInput)
		want   string
	}{
		{"missing strategy", func(p *PlanInput) { p.StrategyType = "" }, "strategy_type is required"},
		{"negative entry", func(p *PlanInput) { p.TargetEntryPrice = -1 }, "target_entry_price must be positive"},
		{"nan quantity", func(p *PlanInput) { p.TargetQuantity = math.NaN() }, "target_quantity must be positive"},
		{"bad basis", func(p *PlanInput) { p.StopLossBasis = "delta" }, `unknown stop_loss_basis "delta"`},
		{"negative stop", func(p *PlanInput) { p.StopLoss = -5 }, "must not be negative"},
		{"option without type", func(p *PlanInput) { p.StrategyType = domain.StrategyShortPut }, "option_type is required"},
		{"required field empty", func(p *PlanInput) {
			p.JournalFields = []domain.JournalField{{Name: "why", Required: true}}
		}, "journal_fields[0]: why is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stockPlan()
			tt.mutate(&in)
			err := ValidatePlan(in)
			assert.ErrorIs(t, err, domain.ErrInvalidPosition)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateTrade(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateTrade(TradeInput{Direction: domain.TradeDirectionBuy, Quantity: 10, Price: 0}))

	zero := time.Time{}
	bad := []TradeInput{
		{Direction: "short", Quantity: 1, Price: 1},
		{Direction: domain.TradeDirectionSell, Quantity: 0, Price: 1},
		{Direction: domain.TradeDirectionSell, Quantity: 1, Price: -1},
		{Direction: domain.TradeDirectionSell, Quantity: 1, Price: math.Inf(1)},
		{Direction: domain.TradeDirectionBuy, Quantity: 1, Price: 1, Timestamp: &zero},
	}
	for _, in := range bad {
		assert.ErrorIs(t, ValidateTrade(in), domain.ErrInvalidTrade, "%+v", in)
	}
}
