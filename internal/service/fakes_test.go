package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memDB backs the in-memory position, trade and journal stores.
type memDB struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	order     []string
	trades    map[string][]domain.Trade
	journals  map[string]domain.JournalEntry

	createPositionErr error
	updatePositionErr error
	appendTradeErr    error
	createJournalErr  error
	deleteJournalErr  error
	deletedJournals   []string
}

func newMemDB() *memDB {
	return &memDB{
		positions: make(map[string]domain.Position),
		trades:    make(map[string][]domain.Trade),
		journals:  make(map[string]domain.JournalEntry),
	}
}

type memPositions struct{ db *memDB }

func (m memPositions) Create(_ context.Context, pos domain.Position) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.createPositionErr != nil {
		return m.db.createPositionErr
	}
	if _, ok := m.db.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	pos.Trades = nil
	m.db.positions[pos.ID] = pos
	m.db.order = append(m.db.order, pos.ID)
	return nil
}

func (m memPositions) GetByID(_ context.Context, id string) (domain.Position, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	pos, ok := m.db.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	pos.Trades = append([]domain.Trade(nil), m.db.trades[id]...)
	return pos, nil
}

func (m memPositions) Update(_ context.Context, pos domain.Position) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.updatePositionErr != nil {
		return m.db.updatePositionErr
	}
	if _, ok := m.db.positions[pos.ID]; !ok {
		return domain.ErrNotFound
	}
	pos.Trades = nil
	m.db.positions[pos.ID] = pos
	return nil
}

func (m memPositions) Delete(_ context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.positions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.db.positions, id)
	delete(m.db.trades, id)
	for i, o := range m.db.order {
		if o == id {
			m.db.order = append(m.db.order[:i], m.db.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m memPositions) List(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	m.db.mu.Lock()
	ids := append([]string(nil), m.db.order...)
	m.db.mu.Unlock()

	if opts.Offset > len(ids) {
		return nil, nil
	}
	ids = ids[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}
	out := make([]domain.Position, 0, len(ids))
	for _, id := range ids {
		p, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (m memPositions) ListCreatedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	all, err := m.List(ctx, domain.ListOpts{})
	if err != nil {
		return nil, err
	}
	var out []domain.Position
	for _, p := range all {
		if p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memTrades struct{ db *memDB }

func (m memTrades) Append(_ context.Context, t domain.Trade) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.appendTradeErr != nil {
		return m.db.appendTradeErr
	}
	if _, ok := m.db.positions[t.PositionID]; !ok {
		return domain.ErrNotFound
	}
	m.db.trades[t.PositionID] = append(m.db.trades[t.PositionID], t)
	return nil
}

func (m memTrades) ListByPosition(_ context.Context, positionID string) ([]domain.Trade, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return append([]domain.Trade(nil), m.db.trades[positionID]...), nil
}

type memJournals struct{ db *memDB }

func (m memJournals) Create(_ context.Context, e domain.JournalEntry) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.createJournalErr != nil {
		return m.db.createJournalErr
	}
	m.db.journals[e.ID] = e
	return nil
}

func (m memJournals) GetByID(_ context.Context, id string) (domain.JournalEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.journals[id]
	if !ok {
		return domain.JournalEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m memJournals) Delete(ctx context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.deleteJournalErr != nil {
		return m.db.deleteJournalErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := m.db.journals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.db.journals, id)
	m.db.deletedJournals = append(m.db.deletedJournals, id)
	return nil
}

func (m memJournals) ListByPosition(_ context.Context, positionID string) ([]domain.JournalEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.JournalEntry
	for _, e := range m.db.journals {
		if e.PositionID == positionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// seqIDs issues predictable identifiers.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", prefix, g.n)
}

func (g *seqIDs) PositionID() string { return g.next("pos") }
func (g *seqIDs) JournalID() string  { return g.next("jrn") }
func (g *seqIDs) TradeID() string    { return g.next("trd") }

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == event {
			return true
		}
	}
	return false
}

type memBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newMemBus() *memBus { return &memBus{messages: make(map[string][][]byte)} }

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *memBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *memBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[channel])
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type memPriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func newMemPriceCache(prices map[string]float64) *memPriceCache {
	if prices == nil {
		prices = make(map[string]float64)
	}
	return &memPriceCache{prices: prices}
}

func (c *memPriceCache) SetPrice(_ context.Context, symbol string, price float64, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
	return nil
}

func (c *memPriceCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, time.Time{}, nil
}

func (c *memPriceCache) GetPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := c.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type fakeQuotes struct {
	prices map[string]float64
	asked  []string
}

func (q *fakeQuotes) LatestPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	q.asked = append(q.asked, symbols...)
	out := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := q.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks { return &memLocks{held: make(map[string]bool)} }

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}
