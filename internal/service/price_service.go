package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

// PriceService assembles price snapshots from the price cache, falling back
// to an upstream quote provider for plain tickers the cache does not hold.
type PriceService struct {
	cache   domain.PriceCache
	quotes  domain.QuoteProvider
	metrics *telemetry.Metrics
	effects sideEffects
	logger  *slog.Logger
	now     func() time.Time
}

// NewPriceService creates a PriceService. quotes, bus and metrics may be nil.
func NewPriceService(
	cache domain.PriceCache,
	quotes domain.QuoteProvider,
	bus domain.SignalBus,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		cache:   cache,
		quotes:  quotes,
		metrics: metrics,
		effects: sideEffects{name: "price_service", bus: bus, logger: logger},
		logger:  logger,
		now:     time.Now,
	}
}

// Snapshot returns the latest known price for each symbol. Symbols without a
// price are omitted; an unavailable cache or provider degrades the snapshot
// rather than failing it.
func (s *PriceService) Snapshot(ctx context.Context, symbols []string) (domain.PriceSnapshot, error) {
	symbols = dedupe(symbols)
	snap := make(domain.PriceSnapshot, len(symbols))
	if len(symbols) == 0 {
		return snap, nil
	}

	cached, err := s.cache.GetPrices(ctx, symbols)
	if err != nil {
		s.logger.WarnContext(ctx, "price_service: cache read failed",
			slog.Int("symbols", len(symbols)),
			slog.String("error", err.Error()),
		)
	}
	for sym, p := range cached {
		snap[sym] = p
	}

	var misses []string
	for _, sym := range symbols {
		if _, ok := snap[sym]; !ok && !domain.IsOptionSymbol(sym) {
			misses = append(misses, sym)
		}
	}

	if len(misses) > 0 && s.quotes != nil {
		fetched, err := s.quotes.LatestPrices(ctx, misses)
		if err != nil {
			s.logger.WarnContext(ctx, "price_service: quote provider failed",
				slog.String("symbols", strings.Join(misses, ",")),
				slog.String("error", err.Error()),
			)
		}
		now := s.now().UTC()
		for sym, p := range fetched {
			snap[sym] = p
			if err := s.cache.SetPrice(ctx, sym, p, now); err != nil {
				s.logger.WarnContext(ctx, "price_service: cache write failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.metrics.PriceMissed(len(symbols) - len(snap))
	return snap, nil
}

// SetPrice records a price for symbol and publishes a price_updated event.
func (s *PriceService) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return fmt.Errorf("price_service: symbol is required")
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("price_service: invalid price %v for %q", price, symbol)
	}
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	if err := s.cache.SetPrice(ctx, symbol, price, ts); err != nil {
		return fmt.Errorf("price_service: set price for %q: %w", symbol, err)
	}

	s.effects.publish(ctx, ChannelPrices, map[string]any{
		"event":     "price_updated",
		"symbol":    symbol,
		"price":     price,
		"timestamp": ts.Format(time.RFC3339Nano),
	})
	return nil
}

// GetPrice returns the cached price for a single symbol.
func (s *PriceService) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	price, ts, err := s.cache.GetPrice(ctx, symbol)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("price_service: get price for %q: %w", symbol, err)
	}
	return price, ts, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
