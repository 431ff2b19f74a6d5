// Package memory provides the in-process price cache and lock manager used
// when Redis is not configured. The lock manager only serializes callers
// inside one process; the price cache can front a persistent store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

type priceEntry struct {
	price     float64
	timestamp time.Time
	expiresAt time.Time
}

// PriceCache implements domain.PriceCache with a mutex-guarded map,
// optionally in front of a backing cache.
type PriceCache struct {
	mu      sync.RWMutex
	prices  map[string]priceEntry
	ttl     time.Duration
	now     func() time.Time
	backing domain.PriceCache
}

// NewPriceCache creates a PriceCache. A ttl of 0 keeps entries forever.
func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		prices: make(map[string]priceEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewReadThrough creates a PriceCache that writes through to backing and
// fills misses from it. Entries are held for ttl before backing is asked
// again.
func NewReadThrough(backing domain.PriceCache, ttl time.Duration) *PriceCache {
	pc := NewPriceCache(ttl)
	pc.backing = backing
	return pc
}

// SetPrice stores the latest price for symbol.
func (pc *PriceCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("memory: set price: empty symbol")
	}
	if pc.backing != nil {
		if err := pc.backing.SetPrice(ctx, symbol, price, ts); err != nil {
			return fmt.Errorf("memory: set price: %w", err)
		}
	}
	pc.store(symbol, price, ts)
	return nil
}

func (pc *PriceCache) store(symbol string, price float64, ts time.Time) {
	e := priceEntry{price: price, timestamp: ts}
	if pc.ttl > 0 {
		e.expiresAt = pc.now().Add(pc.ttl)
	}

	pc.mu.Lock()
	pc.prices[symbol] = e
	pc.mu.Unlock()
}

// GetPrice returns the price for symbol or domain.ErrNotFound.
func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	if e, ok := pc.lookup(symbol); ok {
		return e.price, e.timestamp, nil
	}
	if pc.backing == nil {
		return 0, time.Time{}, fmt.Errorf("memory: get price %q: %w", symbol, domain.ErrNotFound)
	}
	price, ts, err := pc.backing.GetPrice(ctx, symbol)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("memory: get price %q: %w", symbol, err)
	}
	pc.store(symbol, price, ts)
	return price, ts, nil
}

// GetPrices returns the known prices for symbols. Unknown or expired symbols
// are omitted.
func (pc *PriceCache) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	var missing []string
	for _, sym := range symbols {
		if e, ok := pc.lookup(sym); ok {
			out[sym] = e.price
			continue
		}
		missing = append(missing, sym)
	}
	if pc.backing == nil || len(missing) == 0 {
		return out, nil
	}

	found, err := pc.backing.GetPrices(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("memory: get prices: %w", err)
	}
	for sym, price := range found {
		// GetPrices carries no timestamps; the fill time stands in.
		pc.store(sym, price, pc.now())
		out[sym] = price
	}
	return out, nil
}

func (pc *PriceCache) lookup(key string) (priceEntry, bool) {
	pc.mu.RLock()
	e, ok := pc.prices[key]
	pc.mu.RUnlock()
	if !ok {
		return priceEntry{}, false
	}
	if !e.expiresAt.IsZero() && pc.now().After(e.expiresAt) {
		pc.mu.Lock()
		// A SetPrice may have replaced the entry since the read lock was dropped.
		if cur, ok := pc.prices[key]; ok && !cur.expiresAt.IsZero() && pc.now().After(cur.expiresAt) {
			delete(pc.prices, key)
		}
		pc.mu.Unlock()
		return priceEntry{}, false
	}
	return e, true
}
