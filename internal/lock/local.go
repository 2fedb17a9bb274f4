package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process keyed mutex. The ttl argument of WithLock is
// ignored.
type Local struct {
	mu   sync.Mutex
	keys map[string]*localKey
}

type localKey struct {
	sem  chan struct{}
	refs int
}

// NewLocal creates a Local lock.
func NewLocal() *Local {
	return &Local{keys: make(map[string]*localKey)}
}

// WithLock runs fn while holding the lock for key. Waiting stops when ctx is
// done.
func (l *Local) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	k := l.acquireRef(key)
	defer l.releaseRef(key, k)

	select {
	case k.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-k.sem }()

	return fn(ctx)
}

func (l *Local) acquireRef(key string) *localKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.keys[key]
	if !ok {
		k = &localKey{sem: make(chan struct{}, 1)}
		l.keys[key] = k
	}
	k.refs++
	return k
}

func (l *Local) releaseRef(key string, k *localKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.keys, key)
	}
}
