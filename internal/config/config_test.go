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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicitly named file that does not exist is an error...
	assert.Error(t, err)

	// ...but no config file at all falls back to defaults.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.Retries)
	assert.Equal(t, "badger", cfg.Session.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://articles.example.com
  timeout: 5s
  retries: 2
session:
  backend: redis
  redis_addr: localhost:6390
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://articles.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.Retries)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "localhost:6390", cfg.Session.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEWSDESK_API_BASE_URL", "https://env.example.com")
	t.Setenv("NEWSDESK_SESSION_BACKEND", "redis")
	t.Setenv("NEWSDESK_SERVE_ADMIN_PASSWORD", "hunter2")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "hunter2", cfg.Serve.AdminPassword)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad backend": `
session:
  backend: sqlite
`,
		"bad log level": `
logging:
  level: chatty
`,
		"negative retries": `
api:
  retries: -1
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "newsdesk.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
