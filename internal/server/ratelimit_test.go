package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raaihank/llm-humanizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewRateLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewRateLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMin: 10}))
	assert.Nil(t, NewRateLimiter(config.RateLimitConfig{Enabled: true}))
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 2})
	require.NotNil(t, rl)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// buckets are per client
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())

	retry := rl.RetryAfter("10.0.0.1")
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Second)

	// RetryAfter must not consume a token
	assert.InDelta(t, retry.Seconds(), rl.RetryAfter("10.0.0.1").Seconds(), 0.1)
}

func TestRateLimiterBurstDefaultsToRate(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 3})
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("ip"), "request %d", i)
	}
	assert.False(t, rl.Allow("ip"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, IdleTimeout: time.Minute})
	rl.Allow("a")
	rl.Allow("b")

	assert.Equal(t, 0, rl.Cleanup(time.Now()))
	assert.Equal(t, 2, rl.Cleanup(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiterRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"ForwardedFor", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "127.0.0.1:9000", "1.2.3.4"},
		{"RealIP", map[string]string{"X-Real-IP": "5.6.7.8"}, "127.0.0.1:9000", "5.6.7.8"},
		{"RemoteAddr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"RemoteAddrNoPort", nil, "9.9.9.9", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
