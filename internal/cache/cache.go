package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the configured backend. It returns a nil Store when caching is
// disabled.
func New(config *Config, logger *zap.Logger) (Store, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	switch config.Backend {
	case "", BackendMemory:
		return NewMemoryStore(config.Size, config.TTL, logger), nil
	case BackendRedis:
		store, err := NewRedisStore(config, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", config.Backend)
	}
}
