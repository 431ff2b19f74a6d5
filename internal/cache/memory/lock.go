package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// LockManager implements domain.LockManager for a single process. Unlike the
// Redis lock it waits for a held key instead of failing, and ttl is ignored:
// a lock lives until its holder unlocks it or the process exits.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*keyLock)}
}

// Acquire blocks until key is free or ctx is done. The returned unlock func
// is idempotent.
func (lm *LockManager) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	kl, ok := lm.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		lm.locks[key] = kl
	}
	kl.refs++
	lm.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		lm.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			lm.release(key, kl)
		})
	}, nil
}

// release drops one reference and forgets the key once nobody waits on it.
func (lm *LockManager) release(key string, kl *keyLock) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(lm.locks, key)
	}
}

var _ domain.LockManager = (*LockManager)(nil)
