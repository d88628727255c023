package throttle

import (
	"context"
	"sync"
	"time"
)

// Counter counts failed login attempts per key within a rolling window.
// Incr bumps the key's count and returns the new value; the count expires
// window after the first failure. Get returns the current count (0 when the
// key is absent or expired). Reset clears the key.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
	Get(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// MemoryCounter implements Counter with a mutex-guarded map. Counts expire
// window after the first increment. Suitable for a single-process deployment.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]*memoryCount
}

type memoryCount struct {
	n         int
	expiresAt time.Time
}

// NewMemoryCounter creates an empty in-memory failure counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts: make(map[string]*memoryCount),
	}
}

// Incr implements Counter.Incr.
func (c *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	entry, ok := c.counts[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryCount{expiresAt: now.Add(window)}
		c.counts[key] = entry
	}
	entry.n++
	return entry.n, nil
}

// Get implements Counter.Get. Expired entries count as zero and are removed.
func (c *MemoryCounter) Get(ctx context.Context, key string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.counts[key]
	if !ok {
		return 0, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.counts, key)
		return 0, nil
	}
	return entry.n, nil
}

// Reset implements Counter.Reset.
func (c *MemoryCounter) Reset(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	return nil
}
