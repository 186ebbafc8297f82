// Package config holds the daemon configuration file and the client
// settings for the TUI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Noratrieb/does-it-build/internal/model"
)

const (
	DefaultListen        = ":3000"
	DefaultDBPath        = "db.db"
	DefaultCacheTTL      = 30 * time.Second
	DefaultCheckInterval = time.Hour
	DefaultBuildTimeout  = 10 * time.Minute
	DefaultTriggerQueue  = 16
)

// Config is the daemon configuration, loaded from a YAML file.
type Config struct {
	// Listen is the address the web server binds to.
	Listen string `yaml:"listen"`
	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path"`
	// RedisURL enables the response cache when set, e.g.
	// redis://localhost:6379/0. Empty disables caching.
	RedisURL string `yaml:"redis_url"`
	// CacheTTL is how long cached responses stay valid.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CheckInterval is how often the builder polls for new nightlies.
	CheckInterval time.Duration `yaml:"check_interval"`
	// BuildTimeout bounds a single target build. Zero means no limit.
	BuildTimeout time.Duration `yaml:"build_timeout"`
	// Concurrency is the number of parallel builds. Zero picks half
	// the CPU count.
	Concurrency int `yaml:"concurrency"`
	// Modes lists the build modes to sweep. Defaults to all of them.
	Modes []string `yaml:"modes"`
	// SkipTargets are targets excluded from sweeps.
	SkipTargets []string `yaml:"skip_targets"`
	// TriggerQueue is the capacity of the manual trigger queue.
	TriggerQueue int `yaml:"trigger_queue"`
	// ManifestURL overrides the nightly manifest list. Empty uses the
	// static.rust-lang.org default.
	ManifestURL string `yaml:"manifest_url"`
}

// Load reads the config at path, fills in defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Listen:        DefaultListen,
		DBPath:        DefaultDBPath,
		CacheTTL:      DefaultCacheTTL,
		CheckInterval: DefaultCheckInterval,
		BuildTimeout:  DefaultBuildTimeout,
		Modes:         []string{string(model.ModeCore), string(model.ModeMiriStd)},
		TriggerQueue:  DefaultTriggerQueue,
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("config: check_interval must be positive, got %s", c.CheckInterval)
	}
	if c.BuildTimeout < 0 {
		return fmt.Errorf("config: build_timeout must not be negative, got %s", c.BuildTimeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config: concurrency must not be negative, got %d", c.Concurrency)
	}
	if len(c.Modes) == 0 {
		return fmt.Errorf("config: at least one build mode is required")
	}
	for _, m := range c.Modes {
		if _, err := model.ParseMode(m); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.TriggerQueue <= 0 {
		return fmt.Errorf("config: trigger_queue must be positive, got %d", c.TriggerQueue)
	}
	return nil
}

// BuildModes returns Modes parsed into their typed form. Call validate
// (via Load) first.
func (c *Config) BuildModes() []model.Mode {
	modes := make([]model.Mode, 0, len(c.Modes))
	for _, m := range c.Modes {
		modes = append(modes, model.Mode(m))
	}
	return modes
}
