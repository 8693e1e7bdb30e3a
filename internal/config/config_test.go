package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DashboardTTL)
	assert.Equal(t, "token", cfg.Security.CookieName)
	assert.Equal(t, 3, cfg.Store.MaxMutateRetries)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
cache:
  backend: memory
  dashboardttl: 90s
allowcorsorigins: "https://portal.example.org,https://staff.example.org"
`), 0o600))
	t.Setenv("LGCMS_STORE_BACKEND", "memory")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.DashboardTTL)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, []string{"https://portal.example.org", "https://staff.example.org"}, cfg.AllowCORSOrigins)
}

func TestValidateRejectsWeakProductionSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: production\nsecurity:\n  sessionsecret: short\n"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
