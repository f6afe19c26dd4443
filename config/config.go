// Package config loads contract assistant settings from defaults, an optional
// YAML/JSON/TOML config file, CONTRACTAGENT_* environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/tracestore"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONTRACTAGENT"

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime settings.
type Config struct {
	Provider      string        `mapstructure:"provider"`
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	MaxRounds     int           `mapstructure:"max_rounds"`
	EngineTimeout time.Duration `mapstructure:"engine_timeout"`
	SystemPrompt  string        `mapstructure:"system_prompt"`
	DocumentRoot  string        `mapstructure:"document_root"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	TraceDir      string        `mapstructure:"trace_dir"`
	TraceFormat   string        `mapstructure:"trace_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:      ProviderOpenAI,
		Temperature:   0.2,
		MaxTokens:     4096,
		MaxRounds:     10,
		EngineTimeout: 2 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "text",
		TraceFormat:   string(tracestore.FormatJSON),
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalid, c.Provider)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be at least 1, got %d", ErrInvalid, c.MaxRounds)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0,2], got %g", ErrInvalid, c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalid)
	}
	if c.EngineTimeout < 0 {
		return fmt.Errorf("%w: engine_timeout must not be negative", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("%w: log_format must be json or text, got %q", ErrInvalid, c.LogFormat)
	}
	if _, err := tracestore.ParseFormat(c.TraceFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Logger builds the structured logger described by LogLevel and LogFormat.
func (c *Config) Logger() logging.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LogLevelInfo
	}
	return logging.NewSlogLogger(level, c.LogFormat, level == logging.LogLevelDebug)
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"provider":       "provider",
	"model":          "model",
	"max-rounds":     "max_rounds",
	"engine-timeout": "engine_timeout",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"trace-dir":      "trace_dir",
	"trace-format":   "trace_format",
	"document-root":  "document_root",
}

// Loader reads configuration through its own viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader primed with defaults and environment lookup.
func NewLoader() *Loader {
	v := viper.New()

	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("max_rounds", d.MaxRounds)
	v.SetDefault("engine_timeout", d.EngineTimeout)
	v.SetDefault("system_prompt", d.SystemPrompt)
	v.SetDefault("document_root", d.DocumentRoot)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("trace_dir", d.TraceDir)
	v.SetDefault("trace_format", d.TraceFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags makes the known flags of fs override every other source when set.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file at path, or searches "." and
// "$HOME/.contractagent" for contractagent.{yaml,json,toml} when path is
// empty. A missing searched file is not an error; a missing explicit one is.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("contractagent")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.contractagent")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = providerKey(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file Load read, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

// Load is NewLoader().Load(path).
func Load(path string) (*Config, error) { return NewLoader().Load(path) }

func providerKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
