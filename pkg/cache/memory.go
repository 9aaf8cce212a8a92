package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrCacheNotFound = errors.New("cache entry not found")
	ErrCacheExpired  = errors.New("cache entry expired")
)

const cleanupInterval = 5 * time.Minute

// cacheEntry represents a single cache entry with expiration
type cacheEntry struct {
	value     []byte // JSON-encoded value
	expiresAt time.Time
}

// Option configures a cache
type Option func(*entries)

// WithClock replaces the wall clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(e *entries) {
		e.now = now
	}
}

// entries is the expiring key/value map shared by the memory and file caches
type entries struct {
	data map[string]*cacheEntry
	mu   sync.RWMutex
	now  func() time.Time
}

func newEntries(opts ...Option) *entries {
	e := &entries{
		data: make(map[string]*cacheEntry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *entries) set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.data[key] = &cacheEntry{
		value:     data,
		expiresAt: e.now().Add(ttl),
	}
	return nil
}

func (e *entries) get(key string, dest interface{}) error {
	e.mu.RLock()
	entry, exists := e.data[key]
	e.mu.RUnlock()

	if !exists {
		return ErrCacheNotFound
	}

	if e.now().After(entry.expiresAt) {
		e.evict(key, entry)
		return ErrCacheExpired
	}

	return json.Unmarshal(entry.value, dest)
}

// evict deletes key only if it still maps to stale, so a concurrent set is kept
func (e *entries) evict(key string, stale *cacheEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data[key] == stale {
		delete(e.data, key)
	}
}

func (e *entries) delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.data, key)
}

// evictExpired removes expired entries and returns how many were removed
func (e *entries) evictExpired() int {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	cleaned := 0
	for key, entry := range e.data {
		if now.After(entry.expiresAt) {
			delete(e.data, key)
			cleaned++
		}
	}
	return cleaned
}

// MemoryCache is an in-memory implementation of the Cache interface
type MemoryCache struct {
	*entries
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache with background cleanup
func NewMemoryCache(opts ...Option) *MemoryCache {
	cache := &MemoryCache{
		entries: newEntries(opts...),
		stop:    make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Set stores a value in the cache with the specified TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.set(key, value, ttl)
}

// Get retrieves a value from the cache and unmarshals it into dest
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.get(key, dest)
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.delete(key)
	return nil
}

// Close stops the cleanup goroutine
func (m *MemoryCache) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}
