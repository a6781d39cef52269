package moneta

import (
	"sync"
	"time"
)

// stateCache holds the last full thermostat state for a short TTL so
// consecutive reads (zones, show, edit) don't hammer the cloud. Writes
// invalidate it.
type stateCache struct {
	mu        sync.RWMutex
	state     *Thermostat
	fetchedAt time.Time
	ttl       time.Duration
}

func newStateCache(ttl time.Duration) *stateCache {
	return &stateCache{ttl: ttl}
}

func (c *stateCache) Get() *Thermostat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}
	return c.state
}

func (c *stateCache) Set(state *Thermostat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	c.fetchedAt = time.Now()
}

func (c *stateCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = nil
}
