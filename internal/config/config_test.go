package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
solver:
  provider: db
db:
  driver: sqlite
  path: /tmp/thoth.db
github:
  token: abc
  backoff: 500ms
concurrency:
  workers: 2
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db", cfg.Solver.Provider)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "abc", cfg.GitHub.Token)
	assert.Equal(t, 500*time.Millisecond, cfg.GitHub.BackoffDuration())
	assert.Equal(t, 2, cfg.Concurrency.Workers)

	// 未出现的字段保留默认值
	assert.Equal(t, "https://github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, 300, cfg.Concurrency.RPM)
	assert.Equal(t, "https://pypi.org/simple", cfg.Prescription.IndexURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unterminated"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Solver.Provider = "ceph" }},
		{"dir provider without dir", func(c *Config) { c.Solver.Provider = "dir" }},
		{"db provider without db", func(c *Config) { c.Solver.Provider = "db" }},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }},
		{"empty github url", func(c *Config) { c.GitHub.BaseURL = "" }},
		{"negative retries", func(c *Config) { c.GitHub.Retries = -1 }},
		{"zero rpm", func(c *Config) { c.Concurrency.RPM = 0 }},
		{"zero workers", func(c *Config) { c.Concurrency.Workers = 0 }},
		{"empty index url", func(c *Config) { c.Prescription.IndexURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDBEnabled(t *testing.T) {
	assert.False(t, DBConfig{Driver: "postgres"}.Enabled())
	assert.True(t, DBConfig{Driver: "postgres", Host: "localhost"}.Enabled())
	assert.False(t, DBConfig{Driver: "sqlite", Host: "localhost"}.Enabled())
	assert.True(t, DBConfig{Driver: "sqlite", Path: "x.db"}.Enabled())
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GitHubConfig{}.BackoffDuration())
	assert.Equal(t, 2*time.Second, GitHubConfig{Backoff: "-1s"}.BackoffDuration())
	assert.Equal(t, time.Second, GitHubConfig{Backoff: "1s"}.BackoffDuration())
}
