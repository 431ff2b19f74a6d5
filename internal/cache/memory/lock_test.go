package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManager_SerializesHolders(t *testing.T) {
	t.Parallel()

	lm := NewLockManager()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		total   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := lm.Acquire(context.Background(), "position:p1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			total++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 8, total)
	assert.Empty(t, lm.locks)
}

func TestLockManager_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	lm := NewLockManager()
	unlockA, err := lm.Acquire(context.Background(), "a", time.Second)
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := lm.Acquire(context.Background(), "b", time.Second)
	require.NoError(t, err)
	unlockB()
}

func TestLockManager_ContextCancelWhileWaiting(t *testing.T) {
	t.Parallel()

	lm := NewLockManager()
	unlock, err := lm.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = lm.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := lm.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	again()
	assert.Empty(t, lm.locks)
}
