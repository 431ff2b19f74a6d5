package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// PlanInput is the caller-supplied content of a new position plan.
type PlanInput struct {
	Symbol            string              `json:"symbol"`
	StrategyType      domain.StrategyType `json:"strategy_type"`
	TargetEntryPrice  float64             `json:"target_entry_price"`
	TargetQuantity    float64             `json:"target_quantity"`
	ProfitTarget      float64             `json:"profit_target"`
	StopLoss          float64             `json:"stop_loss"`
	ProfitTargetBasis domain.TargetBasis  `json:"profit_target_basis"`
	StopLossBasis     domain.TargetBasis  `json:"stop_loss_basis"`
	PositionThesis    string              `json:"position_thesis"`

	OptionType         *domain.OptionType `json:"option_type,omitempty"`
	StrikePrice        *float64           `json:"strike_price,omitempty"`
	ExpirationDate     *time.Time         `json:"expiration_date,omitempty"`
	PremiumPerContract *float64           `json:"premium_per_contract,omitempty"`

	// JournalFields are the answers recorded on the plan's journal entry.
	// When empty, the thesis is recorded as the only field.
	JournalFields []domain.JournalField `json:"journal_fields,omitempty"`
}

// TradeInput is the caller-supplied content of a new trade.
type TradeInput struct {
	Direction  domain.TradeDirection `json:"direction"`
	Quantity   float64               `json:"quantity"`
	Price      float64               `json:"price"`
	Timestamp  *time.Time            `json:"timestamp,omitempty"`
	Underlying string                `json:"underlying,omitempty"`
	Notes      string                `json:"notes,omitempty"`

	// JournalFields, when present, are recorded as a trade_execution entry.
	JournalFields []domain.JournalField `json:"journal_fields,omitempty"`
}

// ValidatePlan checks a plan before any write happens. All problems are
// reported together, wrapped in domain.ErrInvalidPosition.
func ValidatePlan(in PlanInput) error {
	var problems []string

	if strings.TrimSpace(in.Symbol) == "" {
		problems = append(problems, "symbol is required")
	}
	if strings.TrimSpace(string(in.StrategyType)) == "" {
		problems = append(problems, "strategy_type is required")
	}
	if !positiveFinite(in.TargetEntryPrice) {
		problems = append(problems, "target_entry_price must be positive")
	}
	if !positiveFinite(in.TargetQuantity) {
		problems = append(problems, "target_quantity must be positive")
	}
	if in.ProfitTarget < 0 || in.StopLoss < 0 {
		problems = append(problems, "profit_target and stop_loss must not be negative")
	}
	if !validBasis(in.ProfitTargetBasis) {
		problems = append(problems, fmt.Sprintf("unknown profit_target_basis %q", in.ProfitTargetBasis))
	}
	if !validBasis(in.StopLossBasis) {
		problems = append(problems, fmt.Sprintf("unknown stop_loss_basis %q", in.StopLossBasis))
	}

	if in.StrategyType.IsOption() {
		switch {
		case in.OptionType == nil:
			problems = append(problems, "option_type is required for option strategies")
		case *in.OptionType != domain.OptionTypeCall && *in.OptionType != domain.OptionTypePut:
			problems = append(problems, fmt.Sprintf("unknown option_type %q", *in.OptionType))
		}
		if in.StrikePrice == nil || !positiveFinite(*in.StrikePrice) {
			problems = append(problems, "strike_price must be positive for option strategies")
		}
		if in.ExpirationDate == nil || in.ExpirationDate.IsZero() {
			problems = append(problems, "expiration_date is required for option strategies")
		}
		if in.PremiumPerContract != nil && *in.PremiumPerContract < 0 {
			problems = append(problems, "premium_per_contract must not be negative")
		}
	}

	for i, f := range in.JournalFields {
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, fmt.Sprintf("journal_fields[%d]: name is required", i))
		}
		if f.Required && strings.TrimSpace(f.Response) == "" {
			problems = append(problems, fmt.Sprintf("journal_fields[%d]: %s is required", i, f.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidPosition, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateTrade checks a trade before it is appended.
func ValidateTrade(in TradeInput) error {
	var problems []string

	if !in.Direction.Valid() {
		problems = append(problems, fmt.Sprintf("direction must be buy or sell, got %q", in.Direction))
	}
	if !positiveFinite(in.Quantity) {
		problems = append(problems, "quantity must be positive")
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		problems = append(problems, "price must be a non-negative number")
	}
	if in.Timestamp != nil && in.Timestamp.IsZero() {
		problems = append(problems, "timestamp must not be zero")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidTrade, strings.Join(problems, "; "))
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validBasis(b domain.TargetBasis) bool {
	return b == "" || b == domain.TargetBasisStockPrice || b == domain.TargetBasisOptionPrice
}
