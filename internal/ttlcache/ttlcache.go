// Package ttlcache is a process-wide, concurrency-safe key/value cache with a
// fixed time-to-live, optional negative entries and coalescing of concurrent
// cold lookups into a single upstream fetch.
package ttlcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCachedFailure is returned while a negative entry for the key is fresh.
var ErrCachedFailure = errors.New("ttlcache: upstream failure cached")

// Lookup results reported to an observer.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNegative = "negative"
)

type options struct {
	now         func() time.Time
	negativeTTL time.Duration
	observe     func(result string)
}

// Option configures a Cache.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNegativeTTL enables negative entries: a failed fetch is remembered for
// ttl and further lookups fail fast with ErrCachedFailure. Zero disables it.
func WithNegativeTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.negativeTTL = ttl
		}
	}
}

// WithObserver registers a callback invoked once per lookup with one of the
// Result constants.
func WithObserver(fn func(result string)) Option {
	return func(o *options) {
		o.observe = fn
	}
}

type entry[V any] struct {
	value    V
	failed   bool
	storedAt time.Time
}

// Cache holds values of type V keyed by string.
type Cache[V any] struct {
	ttl  time.Duration
	opts options

	mu      sync.Mutex
	entries map[string]entry[V]

	group singleflight.Group
}

// New constructs a Cache whose successful entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		ttl:     ttl,
		opts:    o,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the fresh value stored for key. found is false when the key is
// absent or expired. A fresh negative entry yields found=true and
// ErrCachedFailure.
func (c *Cache[V]) Get(key string) (v V, found bool, err error) {
	v, found, err = c.lookup(key)
	c.report(found, err)
	return v, found, err
}

// Set stores a successful value for key.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, storedAt: c.opts.now()}
	c.mu.Unlock()
}

// Len reports the number of entries held, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrFetch returns the fresh cached value for key or calls fetch to load it.
// Concurrent callers missing the same key share one fetch call, which does not
// inherit the caller's cancellation.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	v, found, err := c.Get(key)
	if found {
		return v, err
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have filled the key between Get and Do.
		if v, found, err := c.lookup(key); found {
			return v, err
		}

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			c.storeFailure(key)
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	out, _ := res.(V)
	return out, err
}

func (c *Cache[V]) lookup(key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false, nil
	}

	age := c.opts.now().Sub(e.storedAt)
	if e.failed {
		if age < c.opts.negativeTTL {
			return zero, true, ErrCachedFailure
		}
		return zero, false, nil
	}
	if age < c.ttl {
		return e.value, true, nil
	}
	return zero, false, nil
}

func (c *Cache[V]) storeFailure(key string) {
	if c.opts.negativeTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// A still-fresh good value is kept over a later failure.
	if e, ok := c.entries[key]; ok && !e.failed && c.opts.now().Sub(e.storedAt) < c.ttl {
		return
	}
	c.entries[key] = entry[V]{failed: true, storedAt: c.opts.now()}
}

func (c *Cache[V]) report(found bool, err error) {
	if c.opts.observe == nil {
		return
	}
	switch {
	case found && err != nil:
		c.opts.observe(ResultNegative)
	case found:
		c.opts.observe(ResultHit)
	default:
		c.opts.observe(ResultMiss)
	}
}
