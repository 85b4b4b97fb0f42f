package businessflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CounterLocker serializes the load, transform and save steps of one counter.
// The returned unlock func must be called exactly once.
type CounterLocker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// NoopLocker performs no serialization; concurrent writers may lose updates
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// LocalCounterLocker serializes writers per id within one process. A waiter
// gives up when its context is done.
type LocalCounterLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

func NewLocalCounterLocker() *LocalCounterLocker {
	return &LocalCounterLocker{locks: make(map[string]*keyedMutex)}
}

func (l *LocalCounterLocker) Lock(ctx context.Context, id string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	km, ok := l.locks[id]
	if !ok {
		km = &keyedMutex{ch: make(chan struct{}, 1)}
		l.locks[id] = km
	}
	km.refs++
	l.mu.Unlock()

	select {
	case km.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, km)
		return nil, ctx.Err()
	}

	return func() {
		<-km.ch
		l.release(id, km)
	}, nil
}

func (l *LocalCounterLocker) release(id string, km *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	km.refs--
	if km.refs == 0 {
		delete(l.locks, id)
	}
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCounterLocker serializes writers per id across processes with SET NX PX
type RedisCounterLocker struct {
	rc       redis.UniversalClient
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// NewRedisCounterLocker builds a locker whose locks expire after ttl. Lock
// polls for up to wait before giving up with ErrCounterLocked.
func NewRedisCounterLocker(rc redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisCounterLocker {
	return &RedisCounterLocker{
		rc:       rc,
		prefix:   prefix,
		ttl:      ttl,
		wait:     wait,
		interval: 25 * time.Millisecond,
	}
}

func (l *RedisCounterLocker) key(id string) string {
	return fmt.Sprintf("%scounter_lock:%s", l.prefix, id)
}

func (l *RedisCounterLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := l.key(id)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, NewBusinessError("COUNTER_LOCK_FAILED", "Failed to acquire counter lock", err)
		}
		if ok {
			return func() {
				// Release must not depend on the request context, which may be done by now
				_ = releaseScript.Run(context.Background(), l.rc, []string{key}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, NewBusinessErrorf("COUNTER_BUSY", "Counter %s is being updated by another writer", ErrCounterLocked, id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
}
