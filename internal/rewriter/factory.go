package rewriter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/raaihank/llm-humanizer/internal/cache"
	"go.uber.org/zap"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config contains rewriter configuration
type Config struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	Model           string        `yaml:"model" mapstructure:"model"`
	Temperature     float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokensFactor float64       `yaml:"max_tokens_factor" mapstructure:"max_tokens_factor"`
}

// NewFromConfig builds the configured rewriter and wraps it with the cache
// when one is given. A missing API key yields Unavailable rather than an
// error so the service still runs in pattern-only mode.
func NewFromConfig(ctx context.Context, cfg Config, store cache.Store, keyPrefix string, logger *zap.Logger) (Rewriter, error) {
	opts := Options{
		Timeout:         cfg.Timeout,
		Temperature:     float32(cfg.Temperature),
		MaxTokensFactor: cfg.MaxTokensFactor,
	}

	var provider Provider
	switch cfg.Provider {
	case ProviderNone, "":
		logger.Info("Rewriter disabled, pattern engine only")
		return Unavailable{}, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			logger.Warn("OpenAI API key not set, rewriter unavailable")
			return Unavailable{}, nil
		}
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		provider = &OpenAI{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			ModelName:  model,
			HTTPClient: &http.Client{},
		}
	case ProviderGemini:
		if cfg.APIKey == "" {
			logger.Warn("Gemini API key not set, rewriter unavailable")
			return Unavailable{}, nil
		}
		gemini, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		provider = gemini
	default:
		return nil, fmt.Errorf("unknown rewriter provider: %s", cfg.Provider)
	}

	logger.Info("Rewriter initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.Duration("timeout", opts.Timeout),
		zap.Bool("cache", store != nil))

	return NewCached(NewClient(provider, opts, logger), store, keyPrefix, logger), nil
}
