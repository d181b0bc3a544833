package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/raaihank/llm-humanizer/internal/cache"
	"github.com/raaihank/llm-humanizer/internal/history"
	"github.com/raaihank/llm-humanizer/internal/humanizer"
	"github.com/raaihank/llm-humanizer/internal/rewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrNoConfigFile is returned by Watch when defaults and env were the only sources
var ErrNoConfigFile = errors.New("no config file to watch")

// Loader reads configuration from defaults, a YAML file and the environment
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An empty path searches the standard locations.
func NewLoader(configPath string) *Loader {
	v := viper.New()

	v.SetConfigName("humanizer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/llm-humanizer/")
	v.AddConfigPath("$HOME/.llm-humanizer/")

	// Environment variable overrides
	v.SetEnvPrefix("HUMANIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("rewriter.api_key", "HUMANIZER_REWRITER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if err := setDefaults(l.v, GetDefaults()); err != nil {
		return nil, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return l.decode()
}

// ConfigFileUsed returns the file the configuration was read from, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration when the file changes. Invalid updates
// are reported to onError and the previous configuration stays in force.
func (l *Loader) Watch(callback func(*Config), onError func(error)) error {
	if l.v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(cfg)
	})
	l.v.WatchConfig()

	return nil
}

func (l *Loader) decode() (*Config, error) {
	config := &Config{}
	if err := l.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every field of defaults with viper, so env
// overrides work for keys the file never mentions
func setDefaults(v *viper.Viper, defaults *Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	flattenDefaults(v, "", tree)
	return nil
}

func flattenDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, value)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if _, err := humanizer.ParseMode(config.Humanizer.DefaultMode); err != nil {
		return fmt.Errorf("invalid default mode: %w", err)
	}

	if config.Humanizer.FlowProbability < 0 || config.Humanizer.FlowProbability > 1 {
		return fmt.Errorf("invalid flow probability: %v (must be between 0 and 1)", config.Humanizer.FlowProbability)
	}

	if config.Humanizer.MaxBatchSize <= 0 {
		return fmt.Errorf("invalid max batch size: %d", config.Humanizer.MaxBatchSize)
	}

	if config.Humanizer.MaxTextLength <= 0 {
		return fmt.Errorf("invalid max text length: %d", config.Humanizer.MaxTextLength)
	}

	if config.Scorer.LongSentenceWords <= 0 {
		return fmt.Errorf("invalid long sentence threshold: %d", config.Scorer.LongSentenceWords)
	}

	switch config.Rewriter.Provider {
	case "", rewriter.ProviderNone, rewriter.ProviderOpenAI, rewriter.ProviderGemini:
	default:
		return fmt.Errorf("invalid rewriter provider: %s (must be openai, gemini, or none)", config.Rewriter.Provider)
	}

	if config.Rewriter.Timeout < 0 {
		return fmt.Errorf("invalid rewriter timeout: %s", config.Rewriter.Timeout)
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "", cache.BackendMemory, cache.BackendRedis:
		default:
			return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", config.Cache.Backend)
		}
	}

	if config.History.Enabled {
		if config.History.Driver != history.DriverSQLite && config.History.Driver != history.DriverPostgres {
			return fmt.Errorf("invalid history driver: %s (must be sqlite or postgres)", config.History.Driver)
		}
		if config.History.DSN == "" {
			return fmt.Errorf("history dsn is required when history is enabled")
		}
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.RateLimit.RequestsPerMin)
	}

	return nil
}
