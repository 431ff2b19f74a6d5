package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func buy(qty, price float64) domain.Trade {
	return domain.Trade{Direction: domain.TradeDirectionBuy, Quantity: qty, Price: price, Underlying: "AAPL"}
}

func sell(qty, price float64) domain.Trade {
	return domain.Trade{Direction: domain.TradeDirectionSell, Quantity: qty, Price: price, Underlying: "AAPL"}
}

func TestComputeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []domain.Trade
		want   domain.PositionStatus
	}{
		{"nil", nil, domain.PositionStatusPlanned},
		{"empty", []domain.Trade{}, domain.PositionStatusPlanned},
		{"single buy", []domain.Trade{buy(100, 150)}, domain.PositionStatusOpen},
		{"partial sell", []domain.Trade{buy(100, 150), sell(30, 160)}, domain.PositionStatusOpen},
		{"fully sold", []domain.Trade{buy(100, 150), sell(100, 160)}, domain.PositionStatusClosed},
		{"zero quantity only", []domain.Trade{buy(0, 150)}, domain.PositionStatusClosed},
		{"net short", []domain.Trade{sell(5, 2.5)}, domain.PositionStatusOpen},
		{"oversold", []domain.Trade{buy(10, 1), sell(15, 1)}, domain.PositionStatusOpen},
		{"scale in and out", []domain.Trade{buy(50, 10), buy(50, 11), sell(60, 12), sell(40, 13)}, domain.PositionStatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ComputeStatus(tt.trades))
		})
	}
}

func TestComputeStatusDeterministic(t *testing.T) {
	t.Parallel()

	logs := [][]domain.Trade{
		nil,
		{buy(100, 150)},
		{buy(100, 150), sell(100, 151)},
		{buy(3, 1), sell(1, 2), buy(7, 3)},
	}
	for _, trades := range logs {
		first := ComputeStatus(trades)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ComputeStatus(trades))
		}
	}
}

func TestComputeStatusDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	trades := []domain.Trade{buy(100, 150), sell(40, 155)}
	snapshot := append([]domain.Trade(nil), trades...)
	ComputeStatus(trades)
	assert.Equal(t, snapshot, trades)
}

func TestProject(t *testing.T) {
	t.Parallel()

	pos := domain.Position{
		Status: domain.PositionStatusOpen,
		Trades: []domain.Trade{buy(10, 5), sell(10, 6)},
	}
	assert.Equal(t, domain.PositionStatusClosed, Project(pos).Status)

	pos.Trades = nil
	assert.Equal(t, domain.PositionStatusPlanned, Project(pos).Status)
}
