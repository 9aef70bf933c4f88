package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, "db:\n  path: ./x.db\n")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 20*time.Second, c.Server.Timeout)
	assert.Equal(t, 32, c.Cache.Size)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.Equal(t, "./x.db", c.DB.Path)
	assert.NotEmpty(t, c.Log.File)
}

func TestLoadReadsYAML(t *testing.T) {
	p := writeConfig(t, `
server:
  addr: https://shina.example.ru/
  insecure: true
  timeout: 5s
log:
  level: debug
  json: true
cache:
  size: 4
  ttl: 30s
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://shina.example.ru", c.Server.Addr)
	assert.True(t, c.Server.Insecure)
	assert.Equal(t, 5*time.Second, c.Server.Timeout)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Log.JSON)
	assert.Equal(t, 4, c.Cache.Size)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	p := writeConfig(t, "server:\n  addr: https://a.example\n  insecure: true\nlog:\n  level: warn\n")
	t.Setenv("SHINOMONTAZ_SERVER_ADDR", "http://127.0.0.1:8001")
	t.Setenv("SHINOMONTAZ_SERVER_INSECURE", "false")
	t.Setenv("SHINOMONTAZ_CACHE_TTL", "1m")
	t.Setenv("LOG_LEVEL", "error")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8001", c.Server.Addr)
	assert.False(t, c.Server.Insecure)
	assert.Equal(t, time.Minute, c.Cache.TTL)
	assert.Equal(t, "warn", c.Log.Level, "unprefixed variables are ignored")
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  addr: ftp://example\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  size: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)

	t.Setenv("SHINOMONTAZ_CACHE_SIZE", "many")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaultPathMayBeMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)

	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(c.DB.Path))
	assert.Equal(t, "", c.Server.Addr)
}
