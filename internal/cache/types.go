package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Entry is a cached rewrite
type Entry struct {
	Text     string    `json:"text"`
	Model    string    `json:"model,omitempty"`
	CachedAt time.Time `json:"cached_at"`
	TTL      int64     `json:"ttl"`
}

// Stats represents cache performance statistics
type Stats struct {
	Backend     string  `json:"backend"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes,omitempty"`
}

// Config contains cache configuration
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend        string        `yaml:"backend" mapstructure:"backend"`
	Size           int           `yaml:"size" mapstructure:"size"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// Store is a content-addressed rewrite cache
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Key builds the cache key for a rewrite of text under a prompt profile.
// source names the provider and model that produced the rewrite, so a
// config change or a shared Redis never serves another model's output.
// Whitespace differences do not change the key.
func Key(prefix, profile, source, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(source + "\x00" + normalized))
	hash := hex.EncodeToString(sum[:])
	return prefix + ":" + profile + ":" + hash[:32]
}

// hitRate returns hits as a percentage of lookups
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
