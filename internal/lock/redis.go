// Package lock serializes work on a key, either across processes through
// Redis or within a single process.
package lock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Redis is a distributed lock built on SET NX with a per-holder token.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	backoff time.Duration
}

// NewRedis creates a Redis lock. Keys are stored under prefix.
func NewRedis(client redis.UniversalClient, prefix string, backoff time.Duration) *Redis {
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Redis{client: client, prefix: prefix, backoff: backoff}
}

// WithLock runs fn while holding the lock for key. The lock is released when
// fn returns, whatever its result. Waiting stops when ctx is done.
func (l *Redis) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	key = l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return errors.Wrapf(err, "acquire %s", key)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer l.release(context.WithoutCancel(ctx), key, token)

	return fn(ctx)
}

func (l *Redis) release(ctx context.Context, key, token string) {
	// Best effort: the TTL frees the key if this fails.
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
