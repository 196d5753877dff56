package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Backend.AITimeout)
	assert.Equal(t, 24*time.Hour, cfg.State.TTL)
	assert.False(t, cfg.Enrich.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "khobor-desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
backend:
  base_url: "https://news.example.org/"
  ai_timeout: 3m
state:
  path: "/tmp/khobor.db"
log:
  level: DEBUG
  format: console
`), 0o600))

	t.Setenv("KHOBOR_SERVER_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr, "env beats file")
	assert.Equal(t, "https://news.example.org", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Minute, cfg.Backend.AITimeout)
	assert.Equal(t, "/tmp/khobor.db", cfg.State.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadWithFlagOverride(t *testing.T) {
	t.Setenv(configPathEnv, "")

	v := viper.New()
	v.Set("backend.base_url", "http://backend:8000")
	cfg, err := LoadWith(v, "")
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:  ServerConfig{Addr: ":1", ShutdownTimeout: time.Second},
		Backend: BackendConfig{BaseURL: "localhost:8000", Timeout: time.Second, AITimeout: time.Second},
		State:   StateConfig{TTL: time.Hour},
		Log:     LogConfig{Format: "xml"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
	assert.Contains(t, err.Error(), "log.format")

	cfg.Backend.BaseURL = "http://localhost:8000"
	cfg.Log.Format = "json"
	assert.NoError(t, cfg.Validate())
}
