package redis

import (
	"context"
	"crypto/tls"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

func TestParsePriceFields(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	price, got, err := parsePriceFields(map[string]string{
		"price": "187.42",
		"ts":    "1767366245000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, 187.42, price)
	assert.True(t, ts.Equal(got))

	_, _, err = parsePriceFields(map[string]string{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = parsePriceFields(map[string]string{"price": "abc"})
	assert.Error(t, err)

	price, got, err = parsePriceFields(map[string]string{"price": "1.5"})
	require.NoError(t, err)
	assert.Equal(t, 1.5, price)
	assert.True(t, got.IsZero())
}

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "price:AAPL", priceKey("AAPL"))
	assert.Equal(t, "lock:position:01J", lockKey("position:01J"))
	assert.Equal(t, "ratelimit:api:1.2.3.4", rateLimitKey("api:1.2.3.4"))
	assert.True(t, hasPattern("positions*"))
	assert.False(t, hasPattern("positions"))
}

func TestOptions(t *testing.T) {
	t.Parallel()

	plain := options(ClientConfig{Addr: "cache:6379", DB: 2, PoolSize: 20, MaxRetries: 3})
	assert.Equal(t, "cache:6379", plain.Addr)
	assert.Equal(t, 2, plain.DB)
	assert.Equal(t, 20, plain.PoolSize)
	assert.Equal(t, 3, plain.MaxRetries)
	assert.Nil(t, plain.TLSConfig)

	secure := options(ClientConfig{Addr: "cache:6380", TLSEnabled: true})
	require.NotNil(t, secure.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), secure.TLSConfig.MinVersion)
}

func TestAllowedReply(t *testing.T) {
	t.Parallel()

	ok, err := allowed([]int64{1, 4})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = allowed([]int64{0, 0})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = allowed([]int64{1})
	assert.Error(t, err)
}

func TestScriptEmbedded(t *testing.T) {
	assert.Contains(t, slidingWindowLua, "ZREMRANGEBYSCORE")
}

// newTestClient connects to POSITIONBOOK_TEST_REDIS_ADDR or skips.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("POSITIONBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POSITIONBOOK_TEST_REDIS_ADDR not set")
	}
	c, err := New(context.Background(), ClientConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.rdb.FlushDB(context.Background()).Err()
		_ = c.Close()
	})
	return c
}

func TestPriceCacheIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	pc := NewPriceCache(c, time.Minute)

	ts := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, pc.SetPrice(ctx, "AAPL", 190.25, ts))
	require.NoError(t, pc.SetPrice(ctx, "MSFT", 410, ts))

	p, got, err := pc.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.25, p)
	assert.True(t, ts.Equal(got))

	_, _, err = pc.GetPrice(ctx, "NVDA")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	prices, err := pc.GetPrices(ctx, []string{"AAPL", "MSFT", "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 190.25, "MSFT": 410}, prices)
}

func TestLockManagerIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	lm := NewLockManager(c)

	unlock, err := lm.Acquire(ctx, "position:abc", 5*time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "position:abc", 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()

	again, err := lm.Acquire(ctx, "position:abc", 5*time.Second)
	require.NoError(t, err)
	again()
}

func TestRateLimiterIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignalBusIntegration(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewSignalBus(c)

	ch, err := bus.Subscribe(ctx, "trades")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, "trades", []byte(`{"event":"trade_recorded"}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"event":"trade_recorded"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
