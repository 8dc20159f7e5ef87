// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $DOCCHAT_CONFIG (explicit path)
//   - ~/.docchat/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/docchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docchat configuration.
type Config struct {
	// ServerURL is the base URL of the docchat backend.
	ServerURL string `toml:"server_url"`

	// Stream configuration for the live turn stream.
	Stream StreamConfig `toml:"stream"`

	// Cache configuration for the local history mirror.
	Cache CacheConfig `toml:"cache"`

	// UI configuration.
	UI UIConfig `toml:"ui"`
}

// StreamConfig contains streaming connection configuration.
type StreamConfig struct {
	// ReconnectDelayMs is the fixed delay before a reconnect attempt after a
	// transport error. Clamped to [100, 60000].
	ReconnectDelayMs int `toml:"reconnect_delay_ms"`
	// MaxReconnectAttempts caps consecutive reconnect attempts.
	// 0 means unbounded, matching the backend's original behavior.
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
	// RequestTimeoutSecs is the timeout for non-streaming HTTP requests.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// CacheConfig contains local history cache configuration.
type CacheConfig struct {
	// Enabled turns the SQLite history mirror on or off.
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database file (empty = ~/.docchat/history.db).
	Path string `toml:"path"`
}

// UIConfig contains presentation configuration.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme"`
	// MarkdownWidth is the wrap width for rendered assistant answers.
	MarkdownWidth int `toml:"markdown_width"`
	// ShowCitations toggles the citation panel under assistant answers.
	ShowCitations bool `toml:"show_citations"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		ServerURL: "http://127.0.0.1:8000",
		Stream: StreamConfig{
			ReconnectDelayMs:     1000,
			MaxReconnectAttempts: 0,
			RequestTimeoutSecs:   30,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:         "auto",
			MarkdownWidth: 80,
			ShowCitations: true,
		},
	}
}

// fillDefaults replaces zero values with defaults after decoding.
func (c *Config) fillDefaults() {
	def := Default()
	if c.ServerURL == "" {
		c.ServerURL = def.ServerURL
	}
	if c.Stream.ReconnectDelayMs == 0 {
		c.Stream.ReconnectDelayMs = def.Stream.ReconnectDelayMs
	}
	if c.Stream.RequestTimeoutSecs == 0 {
		c.Stream.RequestTimeoutSecs = def.Stream.RequestTimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.MarkdownWidth == 0 {
		c.UI.MarkdownWidth = def.UI.MarkdownWidth
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the docchat configuration directory (~/.docchat).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docchat"), nil
}

// Path returns the active config file path, honoring $DOCCHAT_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("DOCCHAT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CachePath resolves the SQLite history cache file path.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last and win over file values.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
			cfg.fillDefaults()
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back to the config file atomically.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DOCCHAT_* environment variables over the loaded
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCCHAT_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("DOCCHAT_RECONNECT_DELAY_MS"); v != "" {
		c.Stream.ReconnectDelayMs = util.StringToInt(v, c.Stream.ReconnectDelayMs)
	}
	if v := os.Getenv("DOCCHAT_MAX_RECONNECT_ATTEMPTS"); v != "" {
		c.Stream.MaxReconnectAttempts = util.StringToInt(v, c.Stream.MaxReconnectAttempts)
	}
	if v := os.Getenv("DOCCHAT_CACHE_DISABLED"); v == "1" || v == "true" {
		c.Cache.Enabled = false
	}
	if v := os.Getenv("DOCCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// clamp forces out-of-range numeric values into their valid ranges.
func (c *Config) clamp() {
	if c.Stream.ReconnectDelayMs < 100 {
		c.Stream.ReconnectDelayMs = 100
	}
	if c.Stream.ReconnectDelayMs > 60000 {
		c.Stream.ReconnectDelayMs = 60000
	}
	if c.Stream.MaxReconnectAttempts < 0 {
		c.Stream.MaxReconnectAttempts = 0
	}
	if c.Stream.RequestTimeoutSecs < 1 {
		c.Stream.RequestTimeoutSecs = 1
	}
	if c.UI.MarkdownWidth < 20 {
		c.UI.MarkdownWidth = 20
	}
}

// Validate checks the configuration for values that cannot be clamped away.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server_url: missing host")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme)
	}

	return nil
}
