package throttle

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "login_failures:"

// MemcachedCounter implements Counter on memcached, for deployments running
// more than one API instance. The Add-then-Increment sequence keeps the
// increment atomic across instances; the item TTL is the failure window.
type MemcachedCounter struct {
	client *memcache.Client
}

// NewMemcachedCounter creates a MemcachedCounter. addrs is a comma-separated
// list (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and
// maxIdleConns configure the client; both use package defaults if zero.
func NewMemcachedCounter(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCounter, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCounter{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCounter) key(k string) string {
	return keyPrefix + k
}

// Incr implements Counter.Incr. Add seeds the key with 1 when absent;
// ErrNotStored means another instance seeded it first, so Increment applies.
func (c *MemcachedCounter) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	expSec := int32(window.Seconds())
	if expSec <= 0 {
		expSec = 60
	}
	err := c.client.Add(&memcache.Item{
		Key:        c.key(key),
		Value:      []byte("1"),
		Expiration: expSec,
	})
	if err == nil {
		return 1, nil
	}
	if err != memcache.ErrNotStored {
		return 0, err
	}
	n, err := c.client.Increment(c.key(key), 1)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Get implements Counter.Get. A missing key counts as zero.
func (c *MemcachedCounter) Get(ctx context.Context, key string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(item.Value))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Reset implements Counter.Reset. A missing key is already reset.
func (c *MemcachedCounter) Reset(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err := c.client.Delete(c.key(key))
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCounter) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCounter) Close() error {
	return c.client.Close()
}
