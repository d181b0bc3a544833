package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore is a Redis-backed cache shared between service instances
type RedisStore struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(config *Config, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	store := &RedisStore{
		client: client,
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("ttl", config.TTL))

	return store, nil
}

// Get looks up a cached rewrite. Corrupt entries are deleted and reported as misses.
func (r *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		r.logger.Debug("Cache miss", zap.String("key", key))
		return nil, false, nil
	} else if err != nil {
		r.misses.Add(1)
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		r.logger.Error("Failed to unmarshal cached entry", zap.Error(err))
		r.client.Del(ctx, key)
		r.misses.Add(1)
		return nil, false, nil
	}

	r.hits.Add(1)
	r.logger.Debug("Cache hit", zap.String("key", key))
	return &entry, true, nil
}

// Set stores a rewrite with the configured TTL
func (r *RedisStore) Set(ctx context.Context, key string, entry *Entry) error {
	stored := *entry
	stored.CachedAt = time.Now()
	stored.TTL = int64(r.config.TTL.Seconds())

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal entry for caching: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.config.TTL).Err(); err != nil {
		r.logger.Error("Failed to cache entry", zap.Error(err))
		return fmt.Errorf("failed to cache entry: %w", err)
	}

	r.logger.Debug("Entry cached", zap.String("key", key))
	return nil
}

// Stats returns cache performance statistics
func (r *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	info, err := r.client.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	hits, misses := r.hits.Load(), r.misses.Load()
	stats := &Stats{
		Backend: BackendRedis,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}

	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				stats.MemoryUsage = mem
			}
		}
	}

	if keys, err := r.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes every key under the configured prefix
func (r *RedisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.KeyPrefix+":*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		if err := r.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	r.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	if colon < 0 || !strings.Contains(userPart[:colon], "://") {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
