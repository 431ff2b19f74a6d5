package domain

import "time"

// PositionStatus is the lifecycle state of a position. It is always derived
// from the trade log; the value persisted alongside a position is only a hint.
type PositionStatus string

const (
	PositionStatusPlanned PositionStatus = "planned"
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusClosed  PositionStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s PositionStatus) Valid() bool {
	switch s {
	case PositionStatusPlanned, PositionStatusOpen, PositionStatusClosed:
		return true
	}
	return false
}

// StrategyType classifies the trade plan behind a position.
type StrategyType string

const (
	StrategyLongStock StrategyType = "Long Stock"
	StrategyShortPut  StrategyType = "Short Put"
)

// IsOption reports whether the strategy trades option contracts.
func (s StrategyType) IsOption() bool {
	return s == StrategyShortPut
}

// TargetBasis names the price a profit target or stop loss is measured on.
type TargetBasis string

const (
	TargetBasisStockPrice  TargetBasis = "stock_price"
	TargetBasisOptionPrice TargetBasis = "option_price"
)

// OptionType is the contract right of an option position.
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Position is a trade plan plus its execution history.
type Position struct {
	ID                string       `json:"id"`
	Symbol            string       `json:"symbol"`
	StrategyType      StrategyType `json:"strategy_type"`
	TargetEntryPrice  float64      `json:"target_entry_price"`
	TargetQuantity    float64      `json:"target_quantity"`
	ProfitTarget      float64      `json:"profit_target"`
	StopLoss          float64      `json:"stop_loss"`
	ProfitTargetBasis TargetBasis  `json:"profit_target_basis"`
	StopLossBasis     TargetBasis  `json:"stop_loss_basis"`
	PositionThesis    string       `json:"position_thesis"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`

	// Status is whatever was last written by a store. Readers recompute it
	// from Trades and never rely on this value.
	Status PositionStatus `json:"status"`

	JournalEntryIDs []string `json:"journal_entry_ids"`
	Trades          []Trade  `json:"trades"`

	// Option fields; nil for stock strategies.
	OptionType         *OptionType `json:"option_type,omitempty"`
	StrikePrice        *float64    `json:"strike_price,omitempty"`
	ExpirationDate     *time.Time  `json:"expiration_date,omitempty"`
	PremiumPerContract *float64    `json:"premium_per_contract,omitempty"`
}

// Underlyings returns the distinct symbols needed to price the position: the
// position symbol followed by every trade underlying in first-seen order.
func (p Position) Underlyings() []string {
	seen := make(map[string]bool, len(p.Trades)+1)
	out := make([]string, 0, len(p.Trades)+1)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(p.Symbol)
	for _, t := range p.Trades {
		add(t.Underlying)
	}
	return out
}

// TradeUnderlying returns the symbol a new trade on this position is quoted
// against: the OCC contract symbol for option strategies with complete option
// fields, otherwise the plain ticker.
func (p Position) TradeUnderlying() string {
	if !p.StrategyType.IsOption() || p.OptionType == nil || p.StrikePrice == nil || p.ExpirationDate == nil {
		return p.Symbol
	}
	sym, err := FormatOCCSymbol(p.Symbol, *p.ExpirationDate, *p.OptionType, *p.StrikePrice)
	if err != nil {
		return p.Symbol
	}
	return sym
}
