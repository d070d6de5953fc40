// Package cache implements the shared query cache sitting in front of the
// repository engine: an in-process size-weighted LRU with expire-after-access
// folded through single-flight, optionally backed by a shared Redis tier so
// a cold local cache can still be served by a peer's warm entry.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/LerianStudio/confdogma/internal/domain/entry"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// defaultTTL bounds how long an entry may sit in the local tier before it
// expires, refreshed on every access — the expire-after-access half of the
// eviction policy.
const defaultTTL = 10 * time.Minute

// defaultMaxWeightBytes bounds the local tier's total approximate byte
// size when New isn't given WithMaxWeightBytes.
const defaultMaxWeightBytes = 64 << 20 // 64MiB

// Loader materializes the Entry for a cache miss.
type Loader func(ctx context.Context) (*entry.Entry, error)

// Cache is a read-through cache keyed by an opaque fingerprint string (see
// internal/pkg/fingerprint). Entries are weighted by their approximate
// encoded byte size; maxWeight bounds the in-process LRU's total weight on
// top of expirable.LRU's own count and TTL bounds.
type Cache struct {
	local *expirable.LRU[string, *entry.Entry]
	group singleflight.Group
	redis *redis.Client // nil disables the shared tier
	log   mlog.Logger

	ttl time.Duration

	mu        sync.Mutex
	weight    int64
	maxWeight int64
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithRedis backs the cache with a shared Redis tier, consulted on local
// miss and populated on local miss-then-load.
func WithRedis(client *redis.Client) Option {
	return func(c *Cache) { c.redis = client }
}

// WithLogger attaches a logger, defaulting to mlog.None().
func WithLogger(l mlog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMaxWeightBytes overrides the local tier's total approximate byte-size
// budget; New's default is defaultMaxWeightBytes.
func WithMaxWeightBytes(n int64) Option {
	return func(c *Cache) { c.maxWeight = n }
}

// WithTTL overrides how long an entry may go unaccessed before it expires;
// New's default is defaultTTL.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// New builds a Cache whose local tier holds up to maxEntries entries,
// evicts an entry that hasn't been accessed within its TTL, and on top of
// both evicts the least-recently-used entries once their total approximate
// byte weight exceeds maxWeight.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	c := &Cache{
		log:       mlog.None(),
		ttl:       defaultTTL,
		maxWeight: defaultMaxWeightBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.local = expirable.NewLRU[string, *entry.Entry](maxEntries, c.onEvict, c.ttl)

	return c, nil
}

// onEvict keeps the running weight total in sync with whatever
// expirable.LRU removes on its own — TTL expiry, RemoveOldest, or an
// explicit Remove — since those never pass back through addWeighted.
func (c *Cache) onEvict(_ string, en *entry.Entry) {
	c.mu.Lock()
	c.weight -= weightOf(en)
	if c.weight < 0 {
		c.weight = 0
	}
	c.mu.Unlock()
}

// addWeighted adds en under key and then evicts the least-recently-used
// entries, oldest first, until the local tier's total weight is back
// within budget.
func (c *Cache) addWeighted(key string, en *entry.Entry) {
	if old, ok := c.local.Peek(key); ok {
		c.mu.Lock()
		c.weight -= weightOf(old)
		c.mu.Unlock()
	}

	c.local.Add(key, en)

	c.mu.Lock()
	c.weight += weightOf(en)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		over := c.weight > c.maxWeight
		c.mu.Unlock()

		if !over {
			return
		}

		if _, _, ok := c.local.RemoveOldest(); !ok {
			return
		}
	}
}

func weightOf(en *entry.Entry) int64 {
	if en == nil {
		return 0
	}

	return int64(len(en.Content) + len(en.Path))
}

// Get returns the cached Entry for key, loading it via load on a miss.
// Concurrent Get calls for the same key that miss together fold into a
// single load (singleflight), so a thundering herd of identical queries
// against a cold key costs one engine call, not N.
func (c *Cache) Get(ctx context.Context, key string, load Loader) (*entry.Entry, error) {
	if en, ok := c.local.Get(key); ok {
		return en, nil
	}

	if c.redis != nil {
		if en, ok := c.getRedis(ctx, key); ok {
			c.addWeighted(key, en)
			return en, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		en, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.addWeighted(key, en)
		c.setRedis(ctx, key, en)

		return en, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*entry.Entry), nil
}

// Invalidate evicts key from both tiers. Commits do not call it; entries
// are keyed by absolute revision.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.local.Remove(key)

	if c.redis != nil {
		if err := c.redis.Del(ctx, redisKey(key)).Err(); err != nil {
			c.log.Warnf("cache: redis invalidate %s: %v", key, err)
		}
	}
}

func (c *Cache) getRedis(ctx context.Context, key string) (*entry.Entry, bool) {
	b, err := c.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("cache: redis get %s: %v", key, err)
		}

		return nil, false
	}

	var en entry.Entry
	if err := json.Unmarshal(b, &en); err != nil {
		c.log.Warnf("cache: redis entry for %s is corrupt: %v", key, err)
		return nil, false
	}

	return &en, true
}

func (c *Cache) setRedis(ctx context.Context, key string, en *entry.Entry) {
	if c.redis == nil {
		return
	}

	b, err := json.Marshal(en)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, redisKey(key), b, 0).Err(); err != nil {
		c.log.Warnf("cache: redis set %s: %v", key, err)
	}
}

func redisKey(key string) string { return "confdogma:query:" + key }
