package position

import "github.com/alanyoungcy/positionbook/internal/domain"

// TradePnL returns the mark-to-market P&L of a single trade at current.
// Buys are long exposure; sells are modelled as symmetric short exposure.
func TradePnL(t domain.Trade, current float64) float64 {
	switch t.Direction {
	case domain.TradeDirectionBuy:
		return (current - t.Price) * t.Quantity
	case domain.TradeDirectionSell:
		return (t.Price - current) * t.Quantity
	}
	return 0
}

// CalculatePnL sums TradePnL over every trade whose Underlying has an entry
// in prices. Trades without a price are skipped, so partial coverage yields a
// partial figure. ok is false when no trade could be priced at all.
func CalculatePnL(pos domain.Position, prices domain.PriceSnapshot) (pnl float64, ok bool) {
	for _, t := range pos.Trades {
		current, found := prices[t.Underlying]
		if !found {
			continue
		}
		pnl += TradePnL(t, current)
		ok = true
	}
	return pnl, ok
}

// PnLPercentage returns pnl relative to costBasis in percent. It is not
// defined for a zero cost basis.
func PnLPercentage(pnl, costBasis float64) (float64, bool) {
	if costBasis == 0 {
		return 0, false
	}
	return pnl / costBasis * 100, true
}
