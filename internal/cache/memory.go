package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache backed by an LRUCache of hashes.
// Values are stored as JSON so callers never share memory with the cache.
type MemoryCache struct {
	lru *LRUCache[map[string][]byte]
	ttl time.Duration

	// counters are never evicted
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryCache creates an in-process cache holding at most maxKeys keys
func NewMemoryCache(maxKeys int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		lru:      NewLRUCache[map[string][]byte](maxKeys, ttl),
		ttl:      ttl,
		counters: make(map[string]int64),
	}
}

// HGetJSON decodes a cached hash field into dest
func (m *MemoryCache) HGetJSON(ctx context.Context, key, field string, dest any) error {
	fields, ok := m.lru.Get(key)
	if !ok {
		return ErrMiss
	}
	data, ok := fields[field]
	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// HSetJSON stores value in a hash field. A zero expiration uses the cache TTL.
func (m *MemoryCache) HSetJSON(ctx context.Context, key, field string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if expiration <= 0 {
		expiration = m.ttl
	}

	m.lru.Update(key, expiration, func(current map[string][]byte, found bool) map[string][]byte {
		next := make(map[string][]byte, len(current)+1)
		if found {
			maps.Copy(next, current)
		}
		next[field] = data
		return next
	})
	return nil
}

// Delete drops a key and all of its fields
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.lru.Delete(key)
	return nil
}

func (m *MemoryCache) Counter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func (m *MemoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

// CleanExpired removes expired keys and returns how many were removed
func (m *MemoryCache) CleanExpired() int {
	return m.lru.CleanExpired()
}

func (m *MemoryCache) Close() error {
	return nil
}
