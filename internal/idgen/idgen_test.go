package idgen

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionIDsAreSortable(t *testing.T) {
	g := New()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.PositionID()
		_, err := ulid.ParseStrict(ids[i])
		require.NoError(t, err)
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids within one millisecond must be increasing")
}

func TestJournalIDIsUUID(t *testing.T) {
	g := New()
	id := g.JournalID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, g.JournalID())
}

func TestConcurrentUnique(t *testing.T) {
	g := New()

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := g.TradeID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

// maxEntropy yields all-ones entropy, so any increment overflows.
type maxEntropy struct{}

func (maxEntropy) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0xff
	}
	return len(p), nil
}

func TestEntropyOverflowMovesToNextMillisecond(t *testing.T) {
	g := New()
	g.entropy = ulid.Monotonic(maxEntropy{}, 1)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	var ids []string
	require.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			ids = append(ids, g.PositionID())
		}
	})
	assert.True(t, sort.StringsAreSorted(ids))

	base := ulid.Timestamp(fixed)
	for i, id := range ids {
		parsed, err := ulid.ParseStrict(id)
		require.NoError(t, err)
		assert.Equal(t, base+uint64(i), parsed.Time(), "id %d", i)
	}
}

func TestClockGoingBackwardsKeepsOrder(t *testing.T) {
	g := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	first := g.TradeID()
	now = now.Add(-time.Second)
	second := g.TradeID()
	assert.Less(t, first, second)
}
