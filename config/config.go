// Package config assembles the application configuration of the bund
// command: defaults, a JSON or YAML file merged over them, and BUND_*
// environment overrides that may come from a .env file.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/bund/async"
	"github.com/tailored-agentic-units/bund/persist"
)

// Config holds every section of the application configuration.
type Config struct {
	Observer  string          `json:"observer,omitempty" yaml:"observer,omitempty"`
	LogLevel  string          `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Persist   persist.Config  `json:"persist" yaml:"persist"`
	DevTools  DevToolsConfig  `json:"devtools" yaml:"devtools"`
}

// SchedulerConfig configures the scheduler loop and the async actions run
// on it.
type SchedulerConfig struct {
	Mechanism string `json:"mechanism,omitempty" yaml:"mechanism,omitempty"`
	IdleWait  string `json:"idle_wait,omitempty" yaml:"idle_wait,omitempty"` // duration string, bounds RunUntilIdle in one-shot commands
}

// DevToolsConfig configures the HTTP inspector.
type DevToolsConfig struct {
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Signals int    `json:"signals,omitempty" yaml:"signals,omitempty"` // recent signals kept for /api/signals
}

// Default returns the configuration used when nothing is loaded.
func Default() Config {
	return Config{
		Observer: "slog",
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			Mechanism: string(async.MechanismFirst),
			IdleWait:  "5s",
		},
		Persist: persist.DefaultConfig(),
		DevTools: DevToolsConfig{
			Addr:    "127.0.0.1:7070",
			Signals: 100,
		},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	c.Scheduler.Merge(&source.Scheduler)
	c.Persist.Merge(&source.Persist)
	c.DevTools.Merge(&source.DevTools)
}

// Merge applies non-zero values from source into c.
func (c *SchedulerConfig) Merge(source *SchedulerConfig) {
	if source.Mechanism != "" {
		c.Mechanism = source.Mechanism
	}
	if source.IdleWait != "" {
		c.IdleWait = source.IdleWait
	}
}

// Merge applies non-zero values from source into c.
func (c *DevToolsConfig) Merge(source *DevToolsConfig) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Signals > 0 {
		c.Signals = source.Signals
	}
}

// Load reads a JSON or YAML file, chosen by extension, and merges it over
// the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	case ".json", "":
		err = json.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// envVars maps environment variables onto config fields.
var envVars = map[string]func(c *Config, v string) error{
	"BUND_OBSERVER":         func(c *Config, v string) error { c.Observer = v; return nil },
	"BUND_LOG_LEVEL":        func(c *Config, v string) error { c.LogLevel = v; return nil },
	"BUND_MECHANISM":        func(c *Config, v string) error { c.Scheduler.Mechanism = v; return nil },
	"BUND_IDLE_WAIT":        func(c *Config, v string) error { c.Scheduler.IdleWait = v; return nil },
	"BUND_PERSIST_STORE":    func(c *Config, v string) error { c.Persist.Store = v; return nil },
	"BUND_PERSIST_PATH":     func(c *Config, v string) error { c.Persist.Path = v; return nil },
	"BUND_PERSIST_DSN":      func(c *Config, v string) error { c.Persist.DSN = v; return nil },
	"BUND_PERSIST_REDIS":    func(c *Config, v string) error { c.Persist.RedisAddr = v; return nil },
	"BUND_PERSIST_CODEC":    func(c *Config, v string) error { c.Persist.Codec = v; return nil },
	"BUND_PERSIST_PREFIX":   func(c *Config, v string) error { c.Persist.Prefix = v; return nil },
	"BUND_DEVTOOLS_ADDR":    func(c *Config, v string) error { c.DevTools.Addr = v; return nil },
	"BUND_DEVTOOLS_SIGNALS": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUND_DEVTOOLS_SIGNALS: %w", err)
		}
		c.DevTools.Signals = n
		return nil
	},
}

// LoadEnv loads the given .env files, or ".env" when none are given, and
// applies BUND_* variables over c. Missing .env files are ignored; variables
// already set in the environment win over .env values.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	for name, apply := range envVars {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := apply(c, v); err != nil {
			return err
		}
	}
	return nil
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Mechanism parses Scheduler.Mechanism.
func (c *Config) Mechanism() (async.Mechanism, error) {
	return async.ParseMechanism(c.Scheduler.Mechanism)
}
