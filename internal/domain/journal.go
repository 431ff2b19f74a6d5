package domain

import "time"

// JournalEntryType distinguishes planning notes from execution notes.
type JournalEntryType string

const (
	JournalEntryPositionPlan   JournalEntryType = "position_plan"
	JournalEntryTradeExecution JournalEntryType = "trade_execution"
)

// JournalField is one prompted answer inside a journal entry.
type JournalField struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Required bool   `json:"required"`
}

// JournalEntry is a free-form record attached to a position (and optionally
// one of its trades).
type JournalEntry struct {
	ID         string           `json:"id"`
	PositionID string           `json:"position_id"`
	TradeID    string           `json:"trade_id,omitempty"`
	EntryType  JournalEntryType `json:"entry_type"`
	Fields     []JournalField   `json:"fields"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
