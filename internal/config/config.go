// Package config loads steprun CLI configuration from TOML with
// environment overrides.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	API      APIConfig      `toml:"api"`
	State    StateConfig    `toml:"state"`
	Observer ObserverConfig `toml:"observer"`
}

type APIConfig struct {
	// BaseURL is the service root, e.g. "https://api.steprun.dev".
	BaseURL string `toml:"base_url"`
	// Token overrides the persisted access token when set (API-key
	// access without a login flow).
	Token string `toml:"token"`
	// TimeoutSecs bounds each request. Zero means no client timeout.
	TimeoutSecs int `toml:"timeout_secs"`
}

type StateConfig struct {
	// Path is the SQLite file holding persisted auth state and the
	// access token.
	Path string `toml:"path"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/tmp"
	}
	return Config{
		API:   APIConfig{BaseURL: "http://127.0.0.1:3020", TimeoutSecs: 60},
		State: StateConfig{Path: filepath.Join(home, ".steprun", "state.db")},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = defaultPath()
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("STEPRUN_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("STEPRUN_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("STEPRUN_DB"); v != "" {
		cfg.State.Path = v
	}

	return cfg
}

func defaultPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "steprun.toml"
	}
	return filepath.Join(home, ".steprun", "config.toml")
}
