package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int

	// TTL is the uniform time-to-live, enforced natively by the server.
	TTL time.Duration
	// KeyPrefix namespaces this server's keys (default "fds:cache:").
	KeyPrefix string
}

// Redis is a Store backed by a Redis server, for streamable-http deployments
// running more than one instance. Expiry is delegated to Redis key TTLs, so
// the entry lifecycle matches the in-memory store: stale entries are simply
// absent. Redis errors are treated as misses; the upstream is the source of
// truth and a flaky cache must not fail tool calls.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store and verifies connectivity.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fds:cache:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

// Get returns the value for key if present.
func (r *Redis) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(data), true
}

// Set stores value under key with the configured TTL. A write failure is
// ignored: the entry is simply not cached.
func (r *Redis) Set(ctx context.Context, key string, value json.RawMessage) {
	r.client.Set(ctx, r.prefix+key, []byte(value), r.ttl)
}

// Delete removes the entry for key.
func (r *Redis) Delete(ctx context.Context, key string) {
	r.client.Del(ctx, r.prefix+key)
}

// Clear discards all entries under this store's prefix.
func (r *Redis) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
}

// Len returns the number of entries under this store's prefix.
func (r *Redis) Len(ctx context.Context) int {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}

// PurgeExpired is a no-op: Redis expires keys server-side.
func (r *Redis) PurgeExpired(context.Context) int {
	return 0
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
