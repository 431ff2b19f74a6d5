package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

func TestSnapshotFallsBackToQuotes(t *testing.T) {
	cache := newMemPriceCache(map[string]float64{"AAPL": 190})
	quotes := &fakeQuotes{prices: map[string]float64{"MSFT": 410}}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	svc := NewPriceService(cache, quotes, nil, metrics, discardLogger())

	opt := "AAPL  260619P00145000"
	snap, err := svc.Snapshot(context.Background(), []string{"AAPL", "MSFT", "NVDA", opt, "AAPL", ""})
	require.NoError(t, err)

	assert.Equal(t, domain.PriceSnapshot{"AAPL": 190, "MSFT": 410}, snap)
	assert.ElementsMatch(t, []string{"MSFT", "NVDA"}, quotes.asked, "option symbols are not sent upstream")
	assert.Equal(t, 410.0, cache.prices["MSFT"], "fetched quotes are written back")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PriceMisses))
}

func TestSnapshotDegradesOnCacheError(t *testing.T) {
	cache := newMemPriceCache(nil)
	cache.err = errors.New("redis down")
	svc := NewPriceService(cache, nil, nil, nil, discardLogger())

	snap, err := svc.Snapshot(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSetPricePublishes(t *testing.T) {
	cache := newMemPriceCache(nil)
	bus := newMemBus()
	svc := NewPriceService(cache, nil, bus, nil, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.SetPrice(ctx, "AAPL", 201.5, time.Time{}))
	assert.Equal(t, 1, bus.count(ChannelPrices))

	p, _, err := svc.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 201.5, p)

	assert.Error(t, svc.SetPrice(ctx, "", 1, time.Time{}))
	assert.Error(t, svc.SetPrice(ctx, "AAPL", -1, time.Time{}))

	_, _, err = svc.GetPrice(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetPriceRejectsNonFinite(t *testing.T) {
	cache := newMemPriceCache(nil)
	bus := newMemBus()
	svc := NewPriceService(cache, nil, bus, nil, discardLogger())
	ctx := context.Background()

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Error(t, svc.SetPrice(ctx, "AAPL", price, time.Time{}), "%v", price)
	}
	assert.Empty(t, cache.prices)
	assert.Zero(t, bus.count(ChannelPrices))
}

func TestJournalService(t *testing.T) {
	db := newMemDB()
	plans := NewPlanService(memPositions{db}, memJournals{db}, &seqIDs{}, nil, nil, nil, nil, discardLogger())
	res, err := plans.CreatePositionWithJournal(context.Background(), stockPlan())
	require.NoError(t, err)

	svc := NewJournalService(memJournals{db})
	e, err := svc.Get(context.Background(), res.Journal.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Position.ID, e.PositionID)

	entries, err := svc.ListByPosition(context.Background(), res.Position.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
