package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// 包目录下没有 config.yaml，全部取默认值
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 5, cfg.League.MaxConflictRetries)
	assert.Equal(t, 30*time.Second, cfg.Worker.RedeliveryDelay)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: staging
database:
  type: sqlite
  path: /tmp/fq.db
league:
  max_conflict_retries: 8
worker:
  poll_interval: 2s
`), 0o600))

	t.Setenv("FITQUEST_LEAGUE_LOCK_BACKEND", "memory")
	t.Setenv("FITQUEST_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/tmp/fq.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.League.MaxConflictRetries)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "isolate", cfg.Dispatch.DefaultPolicy)
	assert.True(t, cfg.Database.Retry.Enabled)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		App:      AppConfig{Env: "production"},
		Database: DatabaseConfig{Type: "oracle"},
		League:   LeagueConfig{MaxConflictRetries: 0, LockBackend: "redis"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.type")
	assert.Contains(t, err.Error(), "max_conflict_retries")
	assert.Contains(t, err.Error(), "redis.addr")
	assert.Contains(t, err.Error(), "jwt_secret")

	ok := &Config{
		Database: DatabaseConfig{Type: "memory"},
		League:   LeagueConfig{MaxConflictRetries: 3, LockBackend: "memory"},
	}
	assert.NoError(t, ok.Validate())
}
