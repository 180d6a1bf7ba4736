// Package config loads the game configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tatianab/dungeon-floor/internal/engine"
	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/store"
)

// EnvPrefix namespaces the environment overrides, e.g. DUNGEON_LLM_PROVIDER.
const EnvPrefix = "DUNGEON"

// OpenRouterBaseURL is used for the openai provider when no base URL is set.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Store   StoreConfig   `mapstructure:"store"`
	Game    GameConfig    `mapstructure:"game"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type GameConfig struct {
	EventLength int     `mapstructure:"event_length"`
	FailPenalty float64 `mapstructure:"fail_penalty"`
	// MaxFloors ends the game after that many floors; 0 plays forever.
	MaxFloors int `mapstructure:"max_floors"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	// Output is a file path, "stdout" or "stderr". The TUI forces a file.
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	rules := engine.DefaultRules()

	v.SetDefault("llm.provider", llm.ProviderOllama)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", llm.DefaultMaxAttempts)
	v.SetDefault("llm.retry_delay", llm.DefaultRetryDelay)

	v.SetDefault("store.driver", store.DriverFile)
	v.SetDefault("store.path", "saves")

	v.SetDefault("game.event_length", rules.EventLength)
	v.SetDefault("game.fail_penalty", rules.FailPenalty)
	v.SetDefault("game.max_floors", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.output", "dungeon.log")

	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads the configuration. An empty path looks for dungeon.yaml
// in the working directory and in $HOME/.config/dungeon-floor; a missing
// file there is not an error. An explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dungeon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/dungeon-floor")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFallbacks fills provider credentials from the variables each backend
// conventionally uses.
func (c *Config) applyFallbacks() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case llm.ProviderGemini:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	case llm.ProviderOpenAI:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = OpenRouterBaseURL
		}
	}
}

// Validate rejects configurations the game cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOllama, llm.ProviderOpenAI:
	case llm.ProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: gemini needs llm.api_key or GEMINI_API_KEY", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalid, c.LLM.Provider)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("%w: llm.max_attempts must be at least 1, got %d", ErrInvalid, c.LLM.MaxAttempts)
	}
	if c.LLM.Timeout < 0 || c.LLM.RetryDelay < 0 {
		return fmt.Errorf("%w: llm durations must not be negative", ErrInvalid)
	}

	switch c.Store.Driver {
	case store.DriverFile, store.DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalid, c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalid)
	}

	if c.Game.EventLength < 1 {
		return fmt.Errorf("%w: game.event_length must be at least 1, got %d", ErrInvalid, c.Game.EventLength)
	}
	if c.Game.FailPenalty <= 0 || c.Game.FailPenalty > 1 {
		return fmt.Errorf("%w: game.fail_penalty must be in (0, 1], got %g", ErrInvalid, c.Game.FailPenalty)
	}
	if c.Game.MaxFloors < 0 {
		return fmt.Errorf("%w: game.max_floors must not be negative, got %d", ErrInvalid, c.Game.MaxFloors)
	}
	return nil
}

// Provider is the backend selection for llm.NewProvider.
func (c *Config) Provider() llm.ProviderConfig {
	return llm.ProviderConfig{
		Kind:    c.LLM.Provider,
		Model:   c.LLM.Model,
		BaseURL: c.LLM.BaseURL,
		APIKey:  c.LLM.APIKey,
		Timeout: c.LLM.Timeout,
	}
}

// ClientOptions configures retry and timeouts of the completion client.
func (c *Config) ClientOptions() []llm.Option {
	return []llm.Option{
		llm.WithMaxAttempts(c.LLM.MaxAttempts),
		llm.WithRetryDelay(c.LLM.RetryDelay),
		llm.WithTimeout(c.LLM.Timeout),
	}
}

// Rules are the floor rules with the configured overrides applied.
func (c *Config) Rules() engine.Rules {
	rules := engine.DefaultRules()
	rules.EventLength = c.Game.EventLength
	rules.FailPenalty = c.Game.FailPenalty
	return rules
}
