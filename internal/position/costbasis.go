package position

import "github.com/alanyoungcy/positionbook/internal/domain"

// OpenQuantity returns the signed net quantity: buys minus sells.
func OpenQuantity(trades []domain.Trade) float64 {
	var net float64
	for _, t := range trades {
		switch t.Direction {
		case domain.TradeDirectionBuy:
			net += t.Quantity
		case domain.TradeDirectionSell:
			net -= t.Quantity
		}
	}
	return net
}

// AverageCost returns the price of the first buy trade in list order, or
// fallback when the log holds no buys. Callers wanting chronological
// semantics must sort the log first.
//
// This is a first-buy policy, not a quantity-weighted average.
func AverageCost(trades []domain.Trade, fallback float64) float64 {
	if price, ok := firstBuyPrice(trades); ok {
		return price
	}
	return fallback
}

// TotalCostBasis is AverageCost(trades, 0) * OpenQuantity(trades), and
// exactly 0 for empty or sell-only logs.
func TotalCostBasis(trades []domain.Trade) float64 {
	price, ok := firstBuyPrice(trades)
	if !ok {
		return 0
	}
	return price * OpenQuantity(trades)
}

func firstBuyPrice(trades []domain.Trade) (float64, bool) {
	for _, t := range trades {
		if t.Direction == domain.TradeDirectionBuy {
			return t.Price, true
		}
	}
	return 0, false
}
