package domain

// IDGenerator produces globally unique identifiers per entity class.
type IDGenerator interface {
	PositionID() string
	JournalID() string
	TradeID() string
}
