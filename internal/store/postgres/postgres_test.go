package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "postgres://u:p@db:5432/book?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "book"}))
	assert.Equal(t, "postgres://u:p@db:6543/book?sslmode=require",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Port: 6543, Database: "book", SSLMode: "require"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestMigrationNames(t *testing.T) {
	t.Parallel()

	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, []string{"001_init.sql", "002_prices.sql"}, names)
}

func TestPriceStoreFreshClause(t *testing.T) {
	t.Parallel()

	forever := NewPriceStore(nil, 0)
	assert.Empty(t, forever.freshClause(2))
	assert.Equal(t, []any{"AAPL"}, forever.args("AAPL"))

	ttl := NewPriceStore(nil, time.Minute)
	assert.Equal(t, " AND updated_at >= NOW() - $2::interval", ttl.freshClause(2))
	assert.Equal(t, []any{"AAPL", time.Minute}, ttl.args("AAPL"))
}

func TestAppendListOpts(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := appendListOpts("SELECT 1 FROM t WHERE 1=1", nil, 1, "created_at", "DESC",
		domain.ListOpts{Since: &since, Limit: 10, Offset: 20})
	assert.Equal(t, "SELECT 1 FROM t WHERE 1=1 AND created_at >= $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", q)
	assert.Equal(t, []any{since, 10, 20}, args)

	q, args = appendListOpts("SELECT 1 FROM t WHERE x = $1", []any{"x"}, 2, "ts", "ASC", domain.ListOpts{})
	assert.Equal(t, "SELECT 1 FROM t WHERE x = $1 ORDER BY ts ASC", q)
	assert.Equal(t, []any{"x"}, args)
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, mapError(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23503"}), domain.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

// newTestClient connects to POSITIONBOOK_TEST_POSTGRES_DSN or skips.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("POSITIONBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSITIONBOOK_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	c, err := New(ctx, ClientConfig{DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, c.RunMigrations(ctx))
	_, err = c.Pool().Exec(ctx, `TRUNCATE positions, trades, journal_entries, audit_log, prices`)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestStoresIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	positions := NewPositionStore(c.Pool())
	trades := NewTradeStore(c.Pool())
	journals := NewJournalStore(c.Pool())

	now := time.Now().UTC().Truncate(time.Microsecond)
	put := domain.OptionTypePut
	strike := 145.0
	exp := time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)
	pos := domain.Position{
		ID: "pos-1", Symbol: "AAPL", StrategyType: domain.StrategyShortPut,
		TargetEntryPrice: 3.2, TargetQuantity: 1,
		Status: domain.PositionStatusPlanned, JournalEntryIDs: []string{"j-1"},
		OptionType: &put, StrikePrice: &strike, ExpirationDate: &exp,
		CreatedAt: now, UpdatedAt: now,
	}

	require.NoError(t, journals.Create(ctx, domain.JournalEntry{
		ID: "j-1", PositionID: pos.ID, EntryType: domain.JournalEntryPositionPlan,
		Fields:    []domain.JournalField{{Name: "thesis", Response: "premium", Required: true}},
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, positions.Create(ctx, pos))
	assert.ErrorIs(t, positions.Create(ctx, pos), domain.ErrAlreadyExists)

	// Later timestamps first: insertion order must win.
	require.NoError(t, trades.Append(ctx, domain.Trade{ID: "t-1", PositionID: pos.ID, Direction: domain.TradeDirectionSell, Quantity: 1, Price: 3.2, Timestamp: now.Add(time.Hour), Underlying: "AAPL  260619P00145000"}))
	require.NoError(t, trades.Append(ctx, domain.Trade{ID: "t-2", PositionID: pos.ID, Direction: domain.TradeDirectionBuy, Quantity: 1, Price: 1.1, Timestamp: now, Underlying: "AAPL  260619P00145000"}))
	assert.ErrorIs(t, trades.Append(ctx, domain.Trade{ID: "t-3", PositionID: "missing", Direction: domain.TradeDirectionBuy, Quantity: 1, Timestamp: now}), domain.ErrNotFound)

	got, err := positions.GetByID(ctx, pos.ID)
	require.NoError(t, err)
	require.Len(t, got.Trades, 2)
	assert.Equal(t, "t-1", got.Trades[0].ID)
	assert.Equal(t, "t-2", got.Trades[1].ID)
	require.NotNil(t, got.OptionType)
	assert.Equal(t, put, *got.OptionType)
	assert.Equal(t, []string{"j-1"}, got.JournalEntryIDs)

	got.Status = domain.PositionStatusClosed
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, positions.Update(ctx, got))

	list, err := positions.List(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Trades, 2)

	before, err := positions.ListCreatedBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, before, 1)

	entries, err := journals.ListByPosition(ctx, pos.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "premium", entries[0].Fields[0].Response)

	require.NoError(t, journals.Delete(ctx, "j-1"))
	assert.ErrorIs(t, journals.Delete(ctx, "j-1"), domain.ErrNotFound)

	require.NoError(t, positions.Delete(ctx, pos.ID))
	_, err = positions.GetByID(ctx, pos.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditStoreIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	audit := NewAuditStore(c.Pool())

	require.NoError(t, audit.Log(ctx, "plan_created", map[string]any{"position_id": "p"}))
	require.NoError(t, audit.Log(ctx, "archive.positions", nil))
	entries, err := audit.List(ctx, domain.ListOpts{Limit: 5})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byEvent := map[string]domain.AuditEntry{}
	for _, e := range entries {
		byEvent[e.Event] = e
	}
	assert.Equal(t, "p", byEvent["plan_created"].Detail["position_id"])
	assert.Nil(t, byEvent["archive.positions"].Detail)
}

func TestPriceStoreIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	prices := NewPriceStore(c.Pool(), time.Hour)

	ts := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, prices.SetPrice(ctx, "AAPL", 120, ts))
	require.NoError(t, prices.SetPrice(ctx, "AAPL", 121.5, ts.Add(time.Minute)))

	price, at, err := prices.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 121.5, price)
	assert.True(t, ts.Add(time.Minute).Equal(at))

	_, _, err = prices.GetPrice(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := prices.GetPrices(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 121.5}, got)
}
