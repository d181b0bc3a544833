package server

import (
	"context"
	"sync"
	"time"

	"github.com/raaihank/llm-humanizer/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client IP
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*clientBucket
	mu      sync.Mutex
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter, or nil when limiting is disabled
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	if !cfg.Enabled || cfg.RequestsPerMin <= 0 {
		return nil
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerMin
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}

	return &RateLimiter{
		limit:   rate.Limit(float64(cfg.RequestsPerMin) / 60.0), // per second
		burst:   burst,
		idle:    idle,
		clients: make(map[string]*clientBucket),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	return r.bucket(clientIP, time.Now()).Allow()
}

// RetryAfter estimates how long the client should wait for the next token
func (r *RateLimiter) RetryAfter(clientIP string) time.Duration {
	now := time.Now()
	res := r.bucket(clientIP, now).ReserveN(now, 1)
	if !res.OK() {
		return time.Minute
	}
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return delay
}

// bucket gets or creates the limiter for a client IP
func (r *RateLimiter) bucket(clientIP string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.clients[clientIP]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientIP] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Cleanup removes buckets idle since before now minus the idle timeout
func (r *RateLimiter) Cleanup(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.idle)
	removed := 0
	for ip, b := range r.clients {
		if b.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
			removed++
		}
	}
	return removed
}

// Run cleans up idle buckets every interval until ctx is done
func (r *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Cleanup(now)
		}
	}
}

// Len returns the number of tracked clients
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
