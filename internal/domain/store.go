package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists positions. GetByID and List return positions with
// their trades loaded in insertion order.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	Update(ctx context.Context, pos Position) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOpts) ([]Position, error)
	ListCreatedBefore(ctx context.Context, before time.Time) ([]Position, error)
}

// TradeStore persists the append-only trade log.
type TradeStore interface {
	Append(ctx context.Context, trade Trade) error
	ListByPosition(ctx context.Context, positionID string) ([]Trade, error)
}

// JournalStore persists journal entries.
type JournalStore interface {
	Create(ctx context.Context, entry JournalEntry) error
	GetByID(ctx context.Context, id string) (JournalEntry, error)
	Delete(ctx context.Context, id string) error
	ListByPosition(ctx context.Context, positionID string) ([]JournalEntry, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
