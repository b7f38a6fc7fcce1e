// Package config loads the server configuration from a TOML file, with
// sensible defaults when the file or individual keys are absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the espalier server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// MCPPort enables the MCP SSE endpoint when non-zero.
	MCPPort int `toml:"mcp_port"`
}

// StorageConfig selects and parameterizes the flow store.
type StorageConfig struct {
	// Backend is "file" or "redis".
	Backend string `toml:"backend"`
	DataDir string `toml:"data_dir"`
}

// RedisConfig parameterizes the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// TTLSeconds expires stored flows when non-zero.
	TTLSeconds int `toml:"ttl_seconds"`
	// Locking enables distributed flow edit locks around saves.
	Locking bool `toml:"locking"`
}

// TTL returns the flow expiration as a duration.
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8090"},
		Storage: StorageConfig{Backend: "file", DataDir: defaultDataDir()},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Log:     LogConfig{Level: "info"},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "espalier")
}

// Load reads the config at path on top of the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) check() error {
	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
