// Package cache provides TTL-based memoization of upstream API responses.
package cache

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is the backing storage contract for cached responses. Implementations
// must be safe for concurrent use; an expired entry is logically absent and
// must never be returned from Get.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value json.RawMessage)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Len(ctx context.Context) int
	// PurgeExpired removes expired entries eagerly and returns how many were
	// removed. It only frees memory; Get already treats expired entries as
	// absent.
	PurgeExpired(ctx context.Context) int
	Close() error
}

// FetchFunc obtains a value from the upstream on a cache miss.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Options tunes optional Cache behavior.
type Options struct {
	// Singleflight shares one in-flight fetch between concurrent GetOrFetch
	// calls for the same key. Off by default: duplicate concurrent upstream
	// calls for one key are accepted behavior for a single client session,
	// and de-duplication is an explicit opt-in.
	Singleflight bool
}

// Cache memoizes upstream responses with a fixed TTL. The TTL applies
// uniformly to all entries and is not overridable per key.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  *singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache over the given store.
func New(store Store, ttl time.Duration, opts Options) *Cache {
	c := &Cache{store: store, ttl: ttl}
	if opts.Singleflight {
		c.group = &singleflight.Group{}
	}
	return c
}

// Get returns the fresh value for key, or absence. An expired entry is
// indistinguishable from a missing one.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	v, ok := c.store.Get(ctx, key)
	if ok {
		c.hits.Add(1)
		return v, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores value under key with the configured TTL, unconditionally
// replacing any prior entry (last write wins).
func (c *Cache) Set(ctx context.Context, key string, value json.RawMessage) {
	c.store.Set(ctx, key, value)
}

// GetOrFetch returns the cached value for key, fetching and storing it on a
// miss. Errors from fetch propagate untouched and nothing is stored, so the
// next call retries upstream. A fetch cancelled by ctx never reaches the
// store.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (json.RawMessage, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	if c.group != nil {
		v, err, _ := c.group.Do(key, func() (interface{}, error) {
			// A concurrent flight may have populated the key while this call
			// was queued behind it.
			if v, ok := c.store.Get(ctx, key); ok {
				return v, nil
			}
			v, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			c.store.Set(ctx, key, v)
			return v, nil
		})
		if err != nil {
			return nil, err
		}
		return v.(json.RawMessage), nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.store.Set(ctx, key, v)
	return v, nil
}

// Delete removes the entry for key, if any.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.store.Delete(ctx, key)
}

// Clear discards all entries.
func (c *Cache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// PurgeExpired eagerly removes expired entries and returns the count removed.
func (c *Cache) PurgeExpired(ctx context.Context) int {
	return c.store.PurgeExpired(ctx)
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats(ctx context.Context) Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.store.Len(ctx),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Close releases store resources.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Key builds a deterministic cache key from a tool name and its parameters.
// Equal requests map to equal keys regardless of parameter order.
func Key(tool string, params url.Values) string {
	if len(params) == 0 {
		return tool
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(tool)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(params[name], ","))
	}
	return b.String()
}
