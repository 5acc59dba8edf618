package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ReleaseFunc gives up a held lease.
type ReleaseFunc func(ctx context.Context) error

// Lease is a named, expiring mutual-exclusion lock. TryAcquire never blocks:
// ok is false when another holder owns the name.
type Lease interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lease taken over by another holder is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease coordinates across processes with SET NX PX.
type RedisLease struct {
	client goredis.Cmdable
	prefix string
}

var _ Lease = (*RedisLease)(nil)

// NewRedisLease creates a lease whose keys are prefixed with prefix.
func NewRedisLease(client goredis.Cmdable, prefix string) *RedisLease {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisLease{client: client, prefix: prefix}
}

// TryAcquire implements Lease.
func (l *RedisLease) TryAcquire(ctx context.Context, name string, ttl time.Duration) (ReleaseFunc, bool, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %q: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lease %q: %w", name, err)
		}
		return nil
	}
	return release, true, nil
}

// LocalLease is an in-process Lease used when no Redis is configured. It only
// prevents overlap within a single instance.
type LocalLease struct {
	mu     sync.Mutex
	held   map[string]localHold
	now    func() time.Time
	tokens uint64
}

type localHold struct {
	token   uint64
	expires time.Time
}

var _ Lease = (*LocalLease)(nil)

// NewLocalLease creates an in-process lease.
func NewLocalLease() *LocalLease {
	return &LocalLease{held: make(map[string]localHold), now: time.Now}
}

// TryAcquire implements Lease.
func (l *LocalLease) TryAcquire(_ context.Context, name string, ttl time.Duration) (ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[name]; ok && now.Before(h.expires) {
		return nil, false, nil
	}

	l.tokens++
	token := l.tokens
	l.held[name] = localHold{token: token, expires: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[name]; ok && h.token == token {
			delete(l.held, name)
		}
		return nil
	}
	return release, true, nil
}
