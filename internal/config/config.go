// Package config loads daemon settings from an optional TOML file.
// Precedence is CLI flag > config file > built-in default; the CLI applies
// its flag overrides after Load returns.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/spawnd/internal/instance"
	"github.com/loykin/spawnd/internal/logger"
	"github.com/loykin/spawnd/internal/supervisor"
)

// Config is the daemon's full configuration.
type Config struct {
	// Instance and BaseDir identify the daemon instance; every path the
	// daemon touches is derived from the pair.
	Instance string `mapstructure:"instance"`
	BaseDir  string `mapstructure:"base_dir"`
	// GracePeriod is the wait after a graceful terminate before escalation.
	GracePeriod time.Duration `mapstructure:"grace_period"`
	// MetricsListen enables the observability HTTP server when non-empty,
	// e.g. "127.0.0.1:9090".
	MetricsListen string `mapstructure:"metrics_listen"`
	// HistoryDSN enables the lifecycle event sink when non-empty,
	// e.g. "sqlite:///var/lib/spawnd/history.db".
	HistoryDSN string `mapstructure:"history_dsn"`

	Log logger.Config `mapstructure:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Instance:    instance.DefaultName,
		BaseDir:     instance.DefaultBaseDir,
		GracePeriod: supervisor.DefaultGracePeriod,
		Log:         logger.Config{Level: "info"},
	}
}

// Load reads the TOML file at path on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = supervisor.DefaultGracePeriod
	}
	return cfg, nil
}

// Paths derives the instance filesystem layout for this configuration.
func (c Config) Paths() instance.Paths {
	return instance.NewPaths(c.Instance, c.BaseDir)
}
