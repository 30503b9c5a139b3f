package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "data/payroll.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Refresh.Workers)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Redis.Address)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLWithPlaceholders(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
  request_timeout: 45s
database:
  path: /tmp/payroll-test.db
redis:
  address: localhost:6379
  password: ${TEST_REDIS_PASSWORD}
refresh:
  workers: 8
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "/tmp/payroll-test.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, 8, cfg.Refresh.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched sections keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  port: 9000\n")
	t.Setenv("PAYROLL_HTTP_PORT", "9100")
	t.Setenv("PAYROLL_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PAYROLL_REFRESH_WORKERS", "2")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2, cfg.Refresh.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  port: 0\nrefresh:\n  workers: 0\nlog:\n  format: xml\n")

	_, err := config.Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "refresh.workers")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	envFile := writeFile(t, ".env", "PAYROLL_TEST_FROM_DOTENV=yes\n")
	t.Cleanup(func() { os.Unsetenv("PAYROLL_TEST_FROM_DOTENV") })

	n, err := config.LoadEnvFiles(envFile, filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "yes", os.Getenv("PAYROLL_TEST_FROM_DOTENV"))
}
