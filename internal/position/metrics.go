package position

import "github.com/alanyoungcy/positionbook/internal/domain"

// Metrics is the read-time projection of a position. PnL and PnLPercentage
// are nil when unknown, which is distinct from a known zero.
type Metrics struct {
	AvgCost       float64  `json:"avg_cost"`
	CostBasis     float64  `json:"cost_basis"`
	OpenQuantity  float64  `json:"open_quantity"`
	PnL           *float64 `json:"pnl"`
	PnLPercentage *float64 `json:"pnl_percentage,omitempty"`
}

// CalculateMetrics combines the cost basis and P&L calculators for pos.
// PnL is reported only when at least one trade is priced and the cost basis
// is non-zero.
func CalculateMetrics(pos domain.Position, prices domain.PriceSnapshot) Metrics {
	m := Metrics{
		AvgCost:      AverageCost(pos.Trades, pos.TargetEntryPrice),
		CostBasis:    TotalCostBasis(pos.Trades),
		OpenQuantity: OpenQuantity(pos.Trades),
	}

	pnl, ok := CalculatePnL(pos, prices)
	if !ok || m.CostBasis == 0 {
		return m
	}
	m.PnL = &pnl

	if pct, ok := PnLPercentage(pnl, m.CostBasis); ok {
		m.PnLPercentage = &pct
	}
	return m
}

// Project returns pos with its advisory Status replaced by the value derived
// from its trades.
func Project(pos domain.Position) domain.Position {
	pos.Status = ComputeStatus(pos.Trades)
	return pos
}
