package client

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without refetching
const DefaultStaleTime = utils.DefaultClientStaleTime

// OptimisticCounter caches one counter's value on the client side. Increments
// are applied to the cache before the request is sent and rolled back if it
// fails; either way the entry is invalidated once the request settles so the
// next Value call refetches the server state.
type OptimisticCounter struct {
	api       CounterAPI
	id        string
	staleTime time.Duration
	now       func() time.Time

	mu        sync.Mutex
	value     int64
	hasValue  bool
	fetchedAt time.Time
	stale     bool
	// generation is bumped by every mutation so fetches started earlier do not
	// overwrite the speculative value
	generation uint64

	group singleflight.Group
}

// NewOptimisticCounter caches the counter named by id (empty for the default)
func NewOptimisticCounter(api CounterAPI, id string, staleTime time.Duration) *OptimisticCounter {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &OptimisticCounter{api: api, id: id, staleTime: staleTime, now: time.Now}
}

// Cached returns the current cache entry, speculative or not, without any I/O
func (o *OptimisticCounter) Cached() (int64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.hasValue
}

// Value returns the cached value while it is fresh and refetches otherwise.
// Concurrent refetches share one request.
func (o *OptimisticCounter) Value(ctx context.Context) (int64, error) {
	o.mu.Lock()
	if o.hasValue && !o.stale && o.now().Sub(o.fetchedAt) < o.staleTime {
		v := o.value
		o.mu.Unlock()
		return v, nil
	}
	gen := o.generation
	o.mu.Unlock()

	res, err, _ := o.group.Do("value", func() (any, error) {
		return o.api.Get(ctx, o.id)
	})
	if err != nil {
		return 0, err
	}
	counter := res.(models.Counter)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == gen {
		o.value = counter.Value()
		o.hasValue = true
		o.fetchedAt = o.now()
		o.stale = false
	}
	return counter.Value(), nil
}

// Increment adds amount to the cached value immediately, then asks the server.
// On failure the cache returns to the value it held before the call.
func (o *OptimisticCounter) Increment(ctx context.Context, amount int64) (models.Counter, error) {
	o.mu.Lock()
	o.generation++
	previous, hadPrevious := o.value, o.hasValue
	if hadPrevious {
		o.value = previous + amount
	}
	o.mu.Unlock()

	counter, err := o.api.Increment(ctx, o.id, &amount)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil && hadPrevious {
		o.value = previous
	}
	o.invalidateLocked()
	return counter, err
}

// Invalidate marks the entry stale; the next Value call refetches
func (o *OptimisticCounter) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidateLocked()
}

func (o *OptimisticCounter) invalidateLocked() {
	o.generation++
	o.stale = true
}
