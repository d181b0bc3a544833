package config

import (
	"time"

	"github.com/raaihank/llm-humanizer/internal/cache"
	"github.com/raaihank/llm-humanizer/internal/history"
	"github.com/raaihank/llm-humanizer/internal/rewriter"
	"github.com/raaihank/llm-humanizer/internal/scorer"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Humanizer HumanizerConfig `yaml:"humanizer" mapstructure:"humanizer"`
	Scorer    scorer.Weights  `yaml:"scorer" mapstructure:"scorer"`
	Rewriter  rewriter.Config `yaml:"rewriter" mapstructure:"rewriter"`
	Cache     cache.Config    `yaml:"cache" mapstructure:"cache"`
	History   history.Config  `yaml:"history" mapstructure:"history"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// HumanizerConfig contains pipeline configuration
type HumanizerConfig struct {
	DefaultMode      string  `yaml:"default_mode" mapstructure:"default_mode"`
	FlowProbability  float64 `yaml:"flow_probability" mapstructure:"flow_probability"`
	Inversions       bool    `yaml:"inversions" mapstructure:"inversions"`
	RulesFile        string  `yaml:"rules_file" mapstructure:"rules_file"`
	Seed             int64   `yaml:"seed" mapstructure:"seed"` // 0 means a fresh random stream per request
	MaxBatchSize     int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	MaxTextLength    int     `yaml:"max_text_length" mapstructure:"max_text_length"`
	BatchConcurrency int     `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Username        string        `yaml:"username" mapstructure:"username"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Events          struct {
		BroadcastResults     bool `yaml:"broadcast_results" mapstructure:"broadcast_results"`
		BroadcastFallbacks   bool `yaml:"broadcast_fallbacks" mapstructure:"broadcast_fallbacks"`
		BroadcastSystem      bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin  int           `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst           int           `yaml:"burst" mapstructure:"burst"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Humanizer: HumanizerConfig{
			DefaultMode:     "balanced",
			FlowProbability: 0.3,
			MaxBatchSize:    100,
			MaxTextLength:   10000,
		},
		Scorer: scorer.DefaultWeights(),
		Rewriter: rewriter.Config{
			Provider:        rewriter.ProviderOpenAI,
			Temperature:     0.9,
			Timeout:         rewriter.DefaultTimeout,
			MaxTokensFactor: 1.5,
		},
		Cache: cache.Config{
			Enabled:        true,
			Backend:        cache.BackendMemory,
			Size:           1000,
			TTL:            time.Hour,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			KeyPrefix:      "humanizer",
		},
		History: history.Config{
			Enabled:         false,
			Driver:          history.DriverSQLite,
			DSN:             "data/history.db",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			RequestsPerMin:  120,
			Burst:           20,
			CleanupInterval: 10 * time.Minute,
			IdleTimeout:     time.Hour,
		},
	}

	cfg.Logging.File.Path = "logs/humanizer.log"
	cfg.WebSocket.Events.BroadcastResults = true
	cfg.WebSocket.Events.BroadcastFallbacks = true
	cfg.WebSocket.Events.BroadcastSystem = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
