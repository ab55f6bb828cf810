package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/config"
	"github.com/dropDatabas3/nuscien/internal/rate"
)

func TestBuild_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Rate.Enabled = true
	cfg.Providers.JWTCode.Enabled = true
	cfg.Providers.JWTCode.Secret = "0123456789abcdef0123"
	cfg.Providers.Google.Enabled = true
	cfg.Providers.Google.ClientID = "client.apps.googleusercontent.com"
	cfg.Providers.Remote.Enabled = true
	cfg.Providers.Remote.Domain = "corp"
	cfg.Providers.Remote.BaseURL = "http://corp.invalid"
	require.NoError(t, cfg.Validate())

	c, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })

	require.Equal(t, "memory", c.Conn.Name())
	require.Equal(t, []string{"google", "partner"}, c.Access.CodeVerifiers().Names())
	require.Equal(t, []string{"corp"}, c.Access.LoginProviders().Names())
	require.IsType(t, &rate.MemoryLimiter{}, c.Limiter)
	require.NoError(t, c.Migrate(context.Background()))

	h, err := c.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), "go_goroutines")
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "cassandra"
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}
