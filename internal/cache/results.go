package cache

import (
	"sync"
	"time"

	"restobook/internal/core"
)

// Results caches query results by view and filters. Writers call
// Invalidate; a result computed before an invalidation is never stored.
type Results struct {
	lru *LRUCache[core.Result]

	mu  sync.Mutex
	gen uint64
}

func NewResults(maxSize int, ttl time.Duration) *Results {
	return &Results{lru: NewLRUCache[core.Result](maxSize, ttl)}
}

func resultKey(v core.View, f core.Filters) string {
	return string(v) + "|" + f.Key()
}

// Lookup returns a cached result, or a token to pass to Store once the
// result has been computed.
func (r *Results) Lookup(v core.View, f core.Filters) (core.Result, uint64, bool) {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	res, ok := r.lru.Get(resultKey(v, f))
	return res, gen, ok
}

// Store caches res unless the cache was invalidated after token was issued.
func (r *Results) Store(v core.View, f core.Filters, token uint64, res core.Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.gen {
		return false
	}
	r.lru.Set(resultKey(v, f), res)
	return true
}

func (r *Results) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.lru.Purge()
	r.mu.Unlock()
}

func (r *Results) CleanExpired() int {
	return r.lru.CleanExpired()
}

func (r *Results) Size() int {
	return r.lru.Size()
}
