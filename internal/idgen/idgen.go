// Package idgen issues identifiers for positions, trades and journal entries.
package idgen

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator hands out time-sortable ULIDs for positions and trades and random
// UUIDs for journal entries. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
	lastMS  uint64
}

// New returns a Generator seeded from crypto/rand.
func New() *Generator {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     time.Now,
	}
}

// PositionID returns a new position identifier.
func (g *Generator) PositionID() string { return g.ulid() }

// TradeID returns a new trade identifier.
func (g *Generator) TradeID() string { return g.ulid() }

// JournalID returns a new journal entry identifier.
func (g *Generator) JournalID() string { return uuid.NewString() }

func (g *Generator) ulid() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Never step back in time, so IDs stay sorted if the clock does.
	ms := ulid.Timestamp(g.now().UTC())
	if ms < g.lastMS {
		ms = g.lastMS
	}
	for {
		id, err := ulid.New(ms, g.entropy)
		if err == nil {
			g.lastMS = ms
			return id.String()
		}
		if !errors.Is(err, ulid.ErrMonotonicOverflow) {
			// ErrBigTime: the clock reads past the year 10889.
			panic(err)
		}
		// This millisecond's entropy is used up; move to the next one.
		ms++
	}
}
