// Package alpaca fetches latest stock prices from Alpaca market data.
package alpaca

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// Config holds Alpaca market data credentials. Empty keys fall back to the
// APCA_API_KEY_ID and APCA_API_SECRET_KEY environment variables read by the
// SDK.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string // "iex" or "sip"
}

type tradeFetcher interface {
	GetLatestTrades(symbols []string, req marketdata.GetLatestTradeRequest) (map[string]marketdata.Trade, error)
}

// QuoteProvider implements domain.QuoteProvider using the latest trade per
// ticker. Option symbols are never sent upstream.
type QuoteProvider struct {
	client tradeFetcher
	feed   marketdata.Feed
}

var _ domain.QuoteProvider = (*QuoteProvider)(nil)

// NewQuoteProvider returns a QuoteProvider for cfg.
func NewQuoteProvider(cfg Config) *QuoteProvider {
	return &QuoteProvider{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
		feed: marketdata.Feed(strings.ToLower(cfg.Feed)),
	}
}

// LatestPrices returns the last trade price for each known ticker. Unknown
// tickers and option symbols are omitted.
func (p *QuoteProvider) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	tickers := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || domain.IsOptionSymbol(s) {
			continue
		}
		tickers = append(tickers, s)
	}
	if len(tickers) == 0 {
		return map[string]float64{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trades, err := p.client.GetLatestTrades(tickers, marketdata.GetLatestTradeRequest{Feed: p.feed})
	if err != nil {
		return nil, fmt.Errorf("alpaca: latest trades: %w", err)
	}

	out := make(map[string]float64, len(trades))
	for sym, t := range trades {
		if t.Price > 0 {
			out[sym] = t.Price
		}
	}
	return out, nil
}
