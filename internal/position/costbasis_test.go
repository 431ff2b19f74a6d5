package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func TestOpenQuantity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, OpenQuantity(nil))
	assert.Equal(t, 100.0, OpenQuantity([]domain.Trade{buy(100, 150)}))
	assert.Equal(t, 70.0, OpenQuantity([]domain.Trade{buy(100, 150), sell(30, 160)}))
	assert.Equal(t, 0.0, OpenQuantity([]domain.Trade{buy(100, 150), sell(100, 160)}))
	assert.Equal(t, -5.0, OpenQuantity([]domain.Trade{sell(5, 3)}))
	assert.InDelta(t, 0.75, OpenQuantity([]domain.Trade{buy(1.25, 10), sell(0.5, 11)}), 1e-9)
}

func TestAverageCost(t *testing.T) {
	t.Parallel()

	t.Run("fallback without buys", func(t *testing.T) {
		assert.Equal(t, 42.0, AverageCost(nil, 42))
		assert.Equal(t, 42.0, AverageCost([]domain.Trade{sell(10, 99)}, 42))
	})

	t.Run("first buy in list order", func(t *testing.T) {
		trades := []domain.Trade{sell(5, 99), buy(10, 100), buy(10, 200)}
		assert.Equal(t, 100.0, AverageCost(trades, 42))
	})

	t.Run("list order wins over timestamps", func(t *testing.T) {
		late := buy(10, 120)
		late.Timestamp = late.Timestamp.AddDate(0, 0, 5)
		early := buy(10, 80)
		assert.Equal(t, 120.0, AverageCost([]domain.Trade{late, early}, 0))
	})
}

func TestTotalCostBasis(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, TotalCostBasis(nil))
	assert.Equal(t, 0.0, TotalCostBasis([]domain.Trade{}))
	assert.Equal(t, 0.0, TotalCostBasis([]domain.Trade{sell(10, 5)}))
	assert.InDelta(t, 15050.0, TotalCostBasis([]domain.Trade{buy(100, 150.50)}), 1e-9)
	assert.InDelta(t, 10000.0, TotalCostBasis([]domain.Trade{buy(100, 100)}), 1e-9)
	assert.Equal(t, 0.0, TotalCostBasis([]domain.Trade{buy(100, 100), sell(100, 120)}))
}

func TestTotalCostBasisMatchesComponents(t *testing.T) {
	t.Parallel()

	logs := [][]domain.Trade{
		{buy(100, 150.50)},
		{buy(100, 10), sell(30, 12)},
		{sell(10, 9), buy(25, 11), buy(5, 13)},
		{buy(2.5, 401.25), buy(1, 399)},
	}
	for _, trades := range logs {
		want := AverageCost(trades, 0) * OpenQuantity(trades)
		assert.InDelta(t, want, TotalCostBasis(trades), 1e-9)
	}
}
