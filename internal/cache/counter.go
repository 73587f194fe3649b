// Package cache holds shared counters used by the HTTP layer. Values live
// either in process memory or in Redis so several API replicas can share them.
package cache

import (
	"context"
	"sync"
	"time"
)

// Counter increments a fixed-window counter. The window starts at the first
// increment of key and the count resets once it elapses.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	// nextSweep bounds full-map sweeps to one per window.
	nextSweep time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = memoryEntry{expiresAt: now.Add(window)}
		if !now.Before(c.nextSweep) {
			c.sweep(now)
			c.nextSweep = now.Add(window)
		}
	}
	e.count++
	c.entries[key] = e
	return e.count, nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (c *MemoryCounter) sweep(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
