// Package config provides configuration management for the dashboard engines.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"kabu-chart/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Brokers BrokersConfig `mapstructure:"brokers"`
	Signals SignalsConfig `mapstructure:"signals"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// BrokersConfig holds broker classification overrides. Aliases maps a
// case-insensitive substring to a broker identity, on top of the built-in
// sbi/rakuten aliases.
type BrokersConfig struct {
	Aliases map[string]string `mapstructure:"aliases"`
}

// SignalsConfig holds signal display configuration.
type SignalsConfig struct {
	MaxSignals int `mapstructure:"max_signals"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kabu-chart"
	}
	return filepath.Join(home, ".config", "kabu-chart")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. A missing config file yields
// the defaults rather than an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("store.path", filepath.Join(configDir, "kabu-chart.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "kabu-chart.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("signals.max_signals", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KABU_CHART_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("KABU_CHART_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("logging.level", c.Logging.Level, "unsupported level")
	}
	if c.Signals.MaxSignals < 0 {
		return errors.NewValidationError("signals.max_signals", c.Signals.MaxSignals, "must be non-negative")
	}
	for substr, id := range c.Brokers.Aliases {
		if substr == "" || id == "" {
			return errors.NewValidationError("brokers.aliases", substr, "entries must be non-empty")
		}
	}
	return nil
}
