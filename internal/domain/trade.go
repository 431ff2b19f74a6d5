package domain

import "time"

// TradeDirection indicates whether a trade adds to or removes from exposure.
type TradeDirection string

const (
	TradeDirectionBuy  TradeDirection = "buy"
	TradeDirectionSell TradeDirection = "sell"
)

// Valid reports whether d is one of the known directions.
func (d TradeDirection) Valid() bool {
	return d == TradeDirectionBuy || d == TradeDirectionSell
}

// Trade is one immutable execution against a position. Trades are appended,
// never updated or deleted; the ordered list of a position's trades is the
// only source of truth for its state.
type Trade struct {
	ID         string         `json:"id"`
	PositionID string         `json:"position_id"`
	Direction  TradeDirection `json:"direction"`
	Quantity   float64        `json:"quantity"` // non-negative by convention
	Price      float64        `json:"price"`
	Timestamp  time.Time      `json:"timestamp"`
	Underlying string         `json:"underlying"` // plain ticker or OCC option symbol
	Notes      string         `json:"notes,omitempty"`
}
