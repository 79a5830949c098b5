// Package config provides Viper-based configuration for the newsdesk CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything the CLI needs to reach the API and keep a session.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

// APIConfig locates the article service and bounds each call.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// SessionConfig selects where the bearer token lives between runs.
type SessionConfig struct {
	Backend   string `mapstructure:"backend"` // "badger" or "redis"
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// ServeConfig configures the built-in dev server.
type ServeConfig struct {
	Addr          string `mapstructure:"addr"`
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`
	SnapshotPath  string `mapstructure:"snapshot_path"`
}

// Load reads configuration from file and NEWSDESK_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".newsdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/newsdesk")
	}

	// Nested keys map to env names with underscores, so api.base_url
	// becomes NEWSDESK_API_BASE_URL.
	v.SetEnvPrefix("NEWSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.retries", 0)

	v.SetDefault("session.backend", "badger")
	v.SetDefault("session.path", "$HOME/.local/share/newsdesk/session")
	v.SetDefault("session.redis_addr", "localhost:6379")

	v.SetDefault("logging.level", "info")
	v.SetDefault("output.colors", true)

	v.SetDefault("serve.addr", ":8000")
	v.SetDefault("serve.admin_user", "admin")
	v.SetDefault("serve.admin_password", "")
	v.SetDefault("serve.snapshot_path", "data/articles.json")
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative")
	}

	switch cfg.Session.Backend {
	case "badger", "redis":
	default:
		return fmt.Errorf("invalid session backend: %s (must be badger or redis)", cfg.Session.Backend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	return nil
}
