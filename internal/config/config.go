package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all newskeep configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Cleanup  CleanupConfig  `toml:"cleanup"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CleanupConfig struct {
	// Interval between scheduled global cleanup runs.
	Interval time.Duration `toml:"interval"`

	// BatchSize bounds the ids per delete operation on the fallback path.
	BatchSize int `toml:"batch_size"`

	// DisableFastPath forces the client-computed fallback, as when the
	// engine-side bulk operation is not deployed.
	DisableFastPath bool `toml:"disable_fast_path"`

	// FailClosed aborts a feed's cleanup when its protection set cannot
	// be resolved, instead of proceeding unprotected.
	FailClosed bool `toml:"fail_closed"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37411,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Cleanup: CleanupConfig{
			Interval:  24 * time.Hour,
			BatchSize: 500,
		},
	}
}

// FromEnv applies NEWSKEEP_* environment overrides on top of c.
func (c Config) FromEnv() Config {
	if v := os.Getenv("NEWSKEEP_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("NEWSKEEP_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("NEWSKEEP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("NEWSKEEP_CLEANUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Cleanup.Interval = d
		}
	}
	if os.Getenv("NEWSKEEP_NO_FAST_PATH") != "" {
		c.Cleanup.DisableFastPath = true
	}
	return c
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
