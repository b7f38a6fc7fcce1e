package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/internal/config"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"
mcp_port = 9001

[storage]
backend = "redis"

[redis]
addr = "redis.internal:6379"
ttl_seconds = 300
locking = true

[log]
level = "debug"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 9001, cfg.Server.MCPPort)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL())
	assert.True(t, cfg.Redis.Locking)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_PartialOverrideKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"warn\"\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "[storage]\nbackend = \"dynamo\"\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[server\naddr=")
	_, err := config.Load(path)
	assert.Error(t, err)
}
