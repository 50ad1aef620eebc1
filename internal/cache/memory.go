package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// entry holds a cached payload and the time it was stored. Expiry is derived:
// an entry is stale once now - storedAt exceeds the store TTL.
type entry struct {
	value    json.RawMessage
	storedAt time.Time
}

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// TTL is the uniform time-to-live for all entries.
	TTL time.Duration
	// CleanupInterval enables a background sweep of expired entries when
	// positive. The sweep only frees memory; lookup behavior is the same
	// without it.
	CleanupInterval time.Duration
	// MaxEntries bounds the entry count when positive; the oldest entry is
	// evicted to make room. Zero means unbounded, which is fine for the
	// small key space of a single client session.
	MaxEntries int
}

// Memory is a process-local Store guarded by a single RWMutex. Contention is
// not a concern at the throughput of one MCP session.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	max     int

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewMemory creates an in-memory store.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}

	m := &Memory{
		entries: make(map[string]entry),
		ttl:     cfg.TTL,
		max:     cfg.MaxEntries,
		stopCh:  make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go m.sweepLoop(cfg.CleanupInterval)
	}

	return m
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return now.Sub(e.storedAt) > m.ttl
}

// Get returns the value for key if present and fresh. An expired entry is
// evicted opportunistically and reported as a miss.
func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, bool) {
	now := time.Now()

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if m.expired(e, now) {
		m.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have replaced
		// the entry with a fresh one.
		if cur, ok := m.entries[key]; ok && m.expired(cur, time.Now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores value under key, replacing any prior entry.
func (m *Memory) Set(_ context.Context, key string, value json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.max > 0 && len(m.entries) >= m.max {
		m.evictOldestLocked()
	}

	m.entries[key] = entry{value: value, storedAt: time.Now()}
}

// Delete removes the entry for key.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear discards all entries.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Len returns the number of physically present entries, expired ones
// included until they are evicted.
func (m *Memory) Len(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// PurgeExpired removes all expired entries and returns the count removed.
func (m *Memory) PurgeExpired(_ context.Context) int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep, if any.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
	})
	return nil
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range m.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.PurgeExpired(context.Background())
		}
	}
}
