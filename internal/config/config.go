package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/sentinel/internal/logger"
)

// Config is the top-level TOML structure.
//
//	state_dir = "/home/me/.sentinel"
//
//	[log]
//	dir = "/home/me/.sentinel/logs"
//	max_size_mb = 10
//
//	[monitor]
//	interval = "5s"
//	stop_wait = "10s"
//
//	[metrics]
//	enabled = true
//	listen = "127.0.0.1:9700"
//
//	[history]
//	dsn = "/home/me/.sentinel/history.db"
type Config struct {
	StateDir string        `toml:"state_dir" mapstructure:"state_dir"`
	Log      LogConfig     `toml:"log" mapstructure:"log"`
	Monitor  MonitorConfig `toml:"monitor" mapstructure:"monitor"`
	Metrics  MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig `toml:"history" mapstructure:"history"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type MonitorConfig struct {
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
	StopWait time.Duration `toml:"stop_wait" mapstructure:"stop_wait"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Default returns the built-in configuration rooted under ~/.sentinel.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".sentinel")
	return Config{
		StateDir: stateDir,
		Log:      LogConfig{Dir: filepath.Join(stateDir, "logs")},
		Monitor:  MonitorConfig{Interval: 5 * time.Second, StopWait: 10 * time.Second},
		Metrics:  MetricsConfig{Listen: "127.0.0.1:9700"},
	}
}

// Load reads a TOML config file over the defaults. With an empty path the
// well-known <state_dir>/config.toml is used when present; a missing default
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		candidate := filepath.Join(cfg.StateDir, "config.toml")
		if _, err := os.Stat(candidate); err != nil {
			return cfg, nil
		}
		path = candidate
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.StateDir == "" {
		c.StateDir = Default().StateDir
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.StateDir, "logs")
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 5 * time.Second
	}
	if c.Monitor.StopWait <= 0 {
		c.Monitor.StopWait = 10 * time.Second
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9700"
	}
}

// StateFile is the backing store location.
func (c Config) StateFile() string { return filepath.Join(c.StateDir, "state.json") }

// DaemonPIDFile is where the monitor daemon records its pid.
func (c Config) DaemonPIDFile() string { return filepath.Join(c.StateDir, "daemon.pid") }

// LoggerConfig maps the log section onto the process log writer settings.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		Dir:        c.Log.Dir,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
