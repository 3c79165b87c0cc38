// Package store owns the presentation layer's local state: the YAML
// config file, the sqlite offline payload cache, and the diskv-backed
// UI state (tour progress, table prefs). The time-tracking data itself
// lives behind the API and is never persisted here.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	// BaseURL points at the calendar data API, e.g. "http://127.0.0.1:9000".
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout"`
}

type RefreshConfig struct {
	// Cron is a five-field schedule for background refetches.
	Cron string `yaml:"cron"`
}

type IdleConfig struct {
	IdleAfter   time.Duration `yaml:"idle_after"`
	AwayAfter   time.Duration `yaml:"away_after"`
	PromptAfter time.Duration `yaml:"prompt_after"`
}

type Config struct {
	// Listen is the HTTP bind address for the web UI.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone calendar views render in. Empty means
	// the process-local zone.
	Timezone string `yaml:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start"`

	// CacheDir holds the HTTP cache, the payload cache and UI state.
	CacheDir string `yaml:"cache_dir"`

	API     APIConfig     `yaml:"api"`
	Refresh RefreshConfig `yaml:"refresh"`
	Idle    IdleConfig    `yaml:"idle"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8433",
		WeekStart: "monday",
		API: APIConfig{
			BaseURL: "http://127.0.0.1:9000",
			Timeout: 10 * time.Second,
		},
		Refresh: RefreshConfig{Cron: "*/5 * * * *"},
		Idle: IdleConfig{
			IdleAfter:   5 * time.Minute,
			AwayAfter:   30 * time.Minute,
			PromptAfter: 10 * time.Minute,
		},
	}
}

// Normalize fills zero values so partially written configs keep working.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Refresh.Cron == "" {
		c.Refresh.Cron = def.Refresh.Cron
	}
	if c.Idle.IdleAfter <= 0 {
		c.Idle.IdleAfter = def.Idle.IdleAfter
	}
	if c.Idle.AwayAfter <= 0 {
		c.Idle.AwayAfter = def.Idle.AwayAfter
	}
	if c.Idle.PromptAfter <= 0 {
		c.Idle.PromptAfter = def.Idle.PromptAfter
	}
}

// Location resolves the configured timezone, falling back to local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "timetracker", "config.yaml")
	}
	return filepath.Join(".", "timetracker.yaml")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "timetracker")
	}
	return filepath.Join(".", "timetracker-cache")
}

// LoadConfig reads path (or the default path when empty). A missing file
// is created with defaults on first run, matching first-use expectations
// of a local tool.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.Normalize()
		if saveErr := SaveConfig(path, cfg); saveErr != nil {
			return nil, fmt.Errorf("store: create default config: %w", saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("store: parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// SaveConfig writes atomically via a temp file in the target directory.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
