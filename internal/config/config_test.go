package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 20*time.Second, cfg.SSH.CommandTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.Bridge.PollInterval)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sedm.yaml")
	content := `
ssh:
  connect_timeout: 3s
bridge:
  rows: 40
  cols: 120
server:
  addr: 127.0.0.1:9000
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 20*time.Second, cfg.SSH.CommandTimeout, "unset keys keep defaults")
	assert.Equal(t, 40, cfg.Bridge.Rows)
	assert.Equal(t, 120, cfg.Bridge.Cols)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SEDM_SERVER_ADDR", ":9999")
	t.Setenv("SEDM_SSH_COMMAND_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.SSH.CommandTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sedm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: chatty\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "chatty")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	t.Run("explicit path exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("local file in cwd", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(""), 0o644))

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(got))
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	err = WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteDefault(path, true))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero connect timeout", func(c *Config) { c.SSH.ConnectTimeout = 0 }, "connect_timeout"},
		{"negative command timeout", func(c *Config) { c.SSH.CommandTimeout = -time.Second }, "command_timeout"},
		{"zero poll interval", func(c *Config) { c.Bridge.PollInterval = 0 }, "poll_interval"},
		{"zero rows", func(c *Config) { c.Bridge.Rows = 0 }, "Terminal size"},
		{"empty term", func(c *Config) { c.Bridge.Term = " " }, "bridge.term"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"ws path without slash", func(c *Config) { c.Server.WSPath = "ws" }, "ws_path"},
		{"api prefix without slash", func(c *Config) { c.Server.APIPrefix = "api" }, "api_prefix"},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "timeouts"},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "Rate limit"},
		{"empty registry", func(c *Config) { c.Registry.Path = "" }, "registry.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, Validate(nil))
}
