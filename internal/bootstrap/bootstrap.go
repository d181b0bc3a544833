package bootstrap

import (
	"context"
	"fmt"

	"github.com/raaihank/llm-humanizer/internal/cache"
	"github.com/raaihank/llm-humanizer/internal/config"
	"github.com/raaihank/llm-humanizer/internal/grammar"
	"github.com/raaihank/llm-humanizer/internal/humanizer"
	"github.com/raaihank/llm-humanizer/internal/logger"
	"github.com/raaihank/llm-humanizer/internal/patterns"
	"github.com/raaihank/llm-humanizer/internal/rewriter"
	"github.com/raaihank/llm-humanizer/internal/rules"
	"github.com/raaihank/llm-humanizer/internal/scorer"
	"github.com/raaihank/llm-humanizer/internal/websocket"
	"go.uber.org/zap"
)

// Components is a humanizer pipeline together with the resources it owns
type Components struct {
	Humanizer *humanizer.Humanizer
	Rewriter  rewriter.Rewriter
	Cache     cache.Store
	Rules     *rules.Set
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File: &logger.FileConfig{
			Enabled: cfg.File.Enabled,
			Path:    cfg.File.Path,
		},
	})
}

// Build wires rules, cache, rewriter and scorer into a humanizer
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Components, error) {
	set := rules.Default()
	if cfg.Humanizer.RulesFile != "" {
		loaded, err := rules.LoadFromYAML(cfg.Humanizer.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		set = loaded
		log.Info("Rule tables loaded", zap.String("path", cfg.Humanizer.RulesFile))
	}

	store, err := cache.New(&cfg.Cache, log.With(zap.String("component", "cache")))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	rw, err := rewriter.NewFromConfig(ctx, cfg.Rewriter, store, cfg.Cache.KeyPrefix, log.With(zap.String("component", "rewriter")))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("failed to create rewriter: %w", err)
	}

	var seed *uint64
	if cfg.Humanizer.Seed != 0 {
		s := uint64(cfg.Humanizer.Seed)
		seed = &s
	}

	engineLog := log.With(zap.String("component", "patterns"))
	h := humanizer.New(humanizer.Config{
		Engine: patterns.NewEngine(set, patterns.Options{
			FlowProbability: cfg.Humanizer.FlowProbability,
			Inversions:      cfg.Humanizer.Inversions,
		}, engineLog),
		Rewriter:         rw,
		Cleaner:          grammar.New(set.Grammar, log.With(zap.String("component", "grammar"))),
		Scorer:           scorer.New(cfg.Scorer),
		Seed:             seed,
		BatchConcurrency: cfg.Humanizer.BatchConcurrency,
	}, log.With(zap.String("component", "humanizer")))

	return &Components{
		Humanizer: h,
		Rewriter:  rw,
		Cache:     store,
		Rules:     set,
	}, nil
}

// Close releases the cache connection, if any
func (c *Components) Close() error {
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

// HubConfig maps the websocket section onto the hub settings
func HubConfig(cfg config.WebSocketConfig) *websocket.HubConfig {
	return &websocket.HubConfig{
		BroadcastResults:     cfg.Events.BroadcastResults,
		BroadcastFallbacks:   cfg.Events.BroadcastFallbacks,
		BroadcastSystem:      cfg.Events.BroadcastSystem,
		BroadcastConnections: cfg.Events.BroadcastConnections,
		Username:             cfg.Username,
		Password:             cfg.Password,
		MaxConnections:       cfg.MaxConnections,
		ReadBufferSize:       cfg.ReadBufferSize,
		WriteBufferSize:      cfg.WriteBufferSize,
		PingInterval:         cfg.PingInterval,
		PongTimeout:          cfg.PongTimeout,
		WriteTimeout:         cfg.WriteTimeout,
		MaxMessageSize:       cfg.MaxMessageSize,
		AllowedOrigins:       cfg.AllowedOrigins,
	}
}
