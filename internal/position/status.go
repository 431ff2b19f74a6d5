// Package position derives lifecycle state, cost basis and P&L from a
// position's trade log. Every function here is pure and safe for concurrent
// use; nothing is cached and no derived value is read back from storage.
package position

import "github.com/alanyoungcy/positionbook/internal/domain"

// ComputeStatus derives the lifecycle status of a trade log. An empty log is
// planned; a non-empty log with zero net quantity is closed; anything else is
// open. A log holding only zero-quantity trades is closed, not planned.
func ComputeStatus(trades []domain.Trade) domain.PositionStatus {
	if len(trades) == 0 {
		return domain.PositionStatusPlanned
	}
	if OpenQuantity(trades) == 0 {
		return domain.PositionStatusClosed
	}
	return domain.PositionStatusOpen
}
