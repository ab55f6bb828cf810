package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, 2*time.Hour, c.TokenTTL())
	require.Equal(t, "site-admin", c.Token.PermissionAdminKey)
	require.Equal(t, 10, c.Rate.Login.Limit)
	require.Equal(t, time.Minute, c.LoginWindow())
	require.False(t, c.IsProd())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	p := writeYAML(t, `
app:
  app_env: staging
storage:
  driver: gorm
token:
  ttl: 30m
security:
  password_blacklist_path: lists/common.txt
rate:
  enabled: true
  login:
    limit: 3
`)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("RATE_LOGIN_WINDOW", "5m")
	t.Setenv("PERMISSION_ADMIN_KEY", "root")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "staging", c.App.Env)
	require.Equal(t, "gorm", c.Storage.Driver)
	require.Equal(t, "sqlite", c.Storage.Dialect)
	require.Equal(t, 30*time.Minute, c.TokenTTL())
	require.Equal(t, ":9999", c.Server.Addr)
	require.Equal(t, 3, c.Rate.Login.Limit)
	require.Equal(t, 5*time.Minute, c.LoginWindow())
	require.Equal(t, "root", c.Token.PermissionAdminKey)
	require.Equal(t, filepath.Join(filepath.Dir(p), "lists", "common.txt"), c.Security.PasswordBlacklistPath)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"driver":     "storage:\n  driver: mongo\n",
		"pg dsn":     "storage:\n  driver: postgres\n",
		"duration":   "token:\n  ttl: soon\n",
		"redis addr": "cache:\n  kind: redis\n",
		"jwt secret": "providers:\n  jwtcode:\n    enabled: true\n    secret: short\n",
		"remote":     "providers:\n  remote:\n    enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeYAML(t, "server: [\n"))
	require.Error(t, err)
}

func TestLoad_ProviderEnv(t *testing.T) {
	t.Setenv("JWTCODE_SECRET", "0123456789abcdef0123")
	t.Setenv("GOOGLE_CLIENT_ID", "app.apps.googleusercontent.com")

	c, err := Load("")
	require.NoError(t, err)
	require.True(t, c.Providers.JWTCode.Enabled)
	require.Equal(t, "partner", c.Providers.JWTCode.Name)
	require.True(t, c.Providers.Google.Enabled)
}
