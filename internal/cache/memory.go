package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// MemoryStore is an in-process LRU cache with per-entry expiry
type MemoryStore struct {
	lru    *expirable.LRU[string, Entry]
	ttl    time.Duration
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryStore creates a bounded in-memory cache
func NewMemoryStore(size int, ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if size <= 0 {
		size = 1000
	}

	store := &MemoryStore{
		lru:    expirable.NewLRU[string, Entry](size, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}

	logger.Info("Memory cache initialized",
		zap.Int("size", size),
		zap.Duration("ttl", ttl))

	return store
}

// Get looks up a cached rewrite
func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		m.misses.Add(1)
		m.logger.Debug("Cache miss", zap.String("key", key))
		return nil, false, nil
	}

	m.hits.Add(1)
	m.logger.Debug("Cache hit", zap.String("key", key))
	return &entry, true, nil
}

// Set stores a rewrite, evicting the least recently used entry when full
func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	stored := *entry
	stored.CachedAt = time.Now()
	stored.TTL = int64(m.ttl.Seconds())

	if evicted := m.lru.Add(key, stored); evicted {
		m.logger.Debug("Cache entry evicted")
	}
	return nil
}

// Stats returns cache performance statistics
func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	hits, misses := m.hits.Load(), m.misses.Load()
	return &Stats{
		Backend:   BackendMemory,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate(hits, misses),
		TotalKeys: int64(m.lru.Len()),
	}, nil
}

// Clear removes all entries
func (m *MemoryStore) Clear(_ context.Context) error {
	m.lru.Purge()
	m.logger.Info("Cache cleared")
	return nil
}

// Close is a no-op for the memory backend
func (m *MemoryStore) Close() error {
	return nil
}
