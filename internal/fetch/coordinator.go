// Package fetch provides a request coordinator for the upstream bar/trade
// sources: concurrent identical loads collapse into one, and completed loads
// are cached for a short TTL. This replaces the process-wide request caches
// the surrounding fetch layer would otherwise grow.
package fetch

import (
	"context"
	"sync"
	"time"
)

// LoadFunc performs the actual load for one request signature.
type LoadFunc func(ctx context.Context, key string) (interface{}, error)

type call struct {
	done  chan struct{}
	value interface{}
	err   error
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// Coordinator de-duplicates in-flight loads by request signature and caches
// successful results. The zero TTL disables caching; de-duplication always
// applies.
type Coordinator struct {
	load LoadFunc
	ttl  time.Duration

	mu       sync.Mutex
	inflight map[string]*call
	cache    map[string]cacheEntry
	now      func() time.Time
}

// NewCoordinator creates a coordinator around the given loader.
func NewCoordinator(load LoadFunc, ttl time.Duration) *Coordinator {
	return &Coordinator{
		load:     load,
		ttl:      ttl,
		inflight: make(map[string]*call),
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// Get returns the value for key, joining an in-flight load for the same key
// if one exists. Errors are not cached; the next Get retries.
func (c *Coordinator) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	if e, ok := c.cache[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.value, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = c.load(ctx, key)
	close(cl.done)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil && c.ttl > 0 {
		c.cache[key] = cacheEntry{value: cl.value, expires: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return cl.value, cl.err
}

// Invalidate drops any cached value for key.
func (c *Coordinator) Invalidate(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}
