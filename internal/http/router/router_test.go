package router_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	dto "github.com/dropDatabas3/nuscien/internal/http/dto/passport"
	"github.com/dropDatabas3/nuscien/internal/http/router"
	"github.com/dropDatabas3/nuscien/internal/metrics"
	"github.com/dropDatabas3/nuscien/internal/rate"
	"github.com/dropDatabas3/nuscien/internal/security/password"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

type env struct {
	srv   *httptest.Server
	mem   *memory.Repository
	alice *repository.User
	bob   *repository.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repository.HashParams = password.Fast
	ctx := context.Background()
	mem := memory.New()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewAccess(reg)
	require.NoError(t, err)
	httpm, err := metrics.NewHTTP(reg)
	require.NoError(t, err)

	svc, err := access.NewService(access.Deps{Accounts: mem, TokenTTL: time.Hour, Metrics: rec})
	require.NoError(t, err)

	e := &env{mem: mem}
	for _, name := range []string{"alice", "bob"} {
		u := repository.NewUser(name)
		require.NoError(t, u.SetPassword("s3cret!"))
		_, err := mem.SaveUser(ctx, u)
		require.NoError(t, err)
		if name == "alice" {
			e.alice = u
		} else {
			e.bob = u
		}
	}
	admin := repository.NewPermissionItem("site-1", repository.TargetUser, e.alice.ID)
	admin.Set([]string{access.DefaultPermissionAdminKey})
	_, err = mem.SavePermission(ctx, admin)
	require.NoError(t, err)

	h := router.New(router.Deps{
		Access:       svc,
		LoginLimiter: rate.NewMemoryLimiter(3, time.Minute),
		HTTPMetrics:  httpm,
		Gatherer:     reg,
	})
	e.srv = httptest.NewServer(h)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (e *env) login(t *testing.T, user string) *access.TokenInfo {
	t.Helper()
	form := url.Values{"grant_type": {"password"}, "username": {user}, "password": {"s3cret!"}}
	resp, err := e.srv.Client().PostForm(e.srv.URL+"/passport/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var info access.TokenInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.True(t, info.Succeeded())
	return &info
}

func TestLoginAuthorizeLogout(t *testing.T) {
	e := newEnv(t)
	info := e.login(t, "alice")
	require.Equal(t, access.TokenTypeBearer, info.TokenType)
	require.Equal(t, time.Hour, info.ExpiredAfter)

	resp, body := e.do(t, http.MethodGet, "/passport/authorize", info.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got access.TokenInfo
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, info.AccessToken, got.AccessToken)

	resp, _ = e.do(t, http.MethodGet, "/passport/authorize?access_token="+info.AccessToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/passport/me", info.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.MeResponse
	require.NoError(t, json.Unmarshal(body, &me))
	require.Equal(t, "alice", me.User.Name)
	require.NotContains(t, string(body), "password")

	resp, _ = e.do(t, http.MethodPost, "/passport/logout", info.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/passport/authorize", info.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, access.CodeInvalidAccessToken, got.ErrorCode)
}

func TestLogin_Failures(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/passport/login", "", dto.LoginRequest{GrantType: "password", UserName: "alice", Password: "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var info access.TokenInfo
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, access.CodeInvalidPassword, info.ErrorCode)

	resp, body = e.do(t, http.MethodPost, "/passport/login", "", dto.LoginRequest{GrantType: "implicit"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, access.CodeInvalidRequest, info.ErrorCode)

	resp, _ = e.do(t, http.MethodGet, "/passport/authorize", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_RefreshToken(t *testing.T) {
	e := newEnv(t)
	info := e.login(t, "bob")

	resp, body := e.do(t, http.MethodPost, "/passport/login", "", dto.LoginRequest{GrantType: "refresh_token", RefreshToken: info.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var renewed access.TokenInfo
	require.NoError(t, json.Unmarshal(body, &renewed))
	require.True(t, renewed.Succeeded())
	// lejos de expirar: el mismo token
	require.Equal(t, info.AccessToken, renewed.AccessToken)
	require.Equal(t, info.RefreshToken, renewed.RefreshToken)
}

func TestLogin_RateLimited(t *testing.T) {
	e := newEnv(t)
	bad := dto.LoginRequest{GrantType: "password", UserName: "bob", Password: "nope"}
	for i := 0; i < 3; i++ {
		resp, _ := e.do(t, http.MethodPost, "/passport/login", "", bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	resp, _ := e.do(t, http.MethodPost, "/passport/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestPermissions(t *testing.T) {
	e := newEnv(t)
	alice := e.login(t, "alice")
	bob := e.login(t, "bob")
	path := "/passport/permissions/site-1/user/" + e.bob.ID

	resp, _ := e.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, path, bob.AccessToken, dto.SavePermissionRequest{Permissions: []string{"read"}})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, http.MethodPut, path, alice.AccessToken, dto.SavePermissionRequest{Permissions: []string{"read", "write"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var item dto.PermissionResponse
	require.NoError(t, json.Unmarshal(body, &item))
	require.Equal(t, []string{"read", "write"}, item.Permissions)
	require.Equal(t, "user", item.TargetType)

	// propios sin admin
	resp, body = e.do(t, http.MethodGet, path, bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &item))
	require.Equal(t, []string{"read", "write"}, item.Permissions)

	resp, body = e.do(t, http.MethodGet, "/passport/permissions/site-1/check?p=read,write", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check dto.CheckResponse
	require.NoError(t, json.Unmarshal(body, &check))
	require.True(t, check.Granted)

	_, body = e.do(t, http.MethodGet, "/passport/permissions/site-1/check?p=read&p=delete", bob.AccessToken, nil)
	require.NoError(t, json.Unmarshal(body, &check))
	require.False(t, check.Granted)

	_, body = e.do(t, http.MethodGet, "/passport/permissions/site-1/check?p=read&p=delete&any=true", bob.AccessToken, nil)
	require.NoError(t, json.Unmarshal(body, &check))
	require.True(t, check.Granted)

	resp, _ = e.do(t, http.MethodGet, "/passport/permissions/site-1/check", bob.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/passport/permissions/site-1/planet/x", alice.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	require.Equal(t, dto.ErrCodeArgument, apiErr.Code)
}

func TestSettings(t *testing.T) {
	e := newEnv(t)
	alice := e.login(t, "alice")
	path := "/passport/settings/site-1/theme"

	resp, _ := e.do(t, http.MethodGet, path, alice.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, path, alice.AccessToken, map[string]any{"dark": true})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, path, alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"dark":true}`, string(body))

	bob := e.login(t, "bob")
	resp, _ = e.do(t, http.MethodGet, path, bob.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthCodeFlow(t *testing.T) {
	e := newEnv(t)
	bob := e.login(t, "bob")

	resp, body := e.do(t, http.MethodPost, "/passport/authcode", bob.AccessToken, dto.SetCodeRequest{ServiceProvider: "WeChat", Code: "c-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var code dto.AuthCodeResponse
	require.NoError(t, json.Unmarshal(body, &code))
	require.Equal(t, "wechat", code.ServiceProvider)
	require.Equal(t, e.bob.ID, code.OwnerID)

	resp, body = e.do(t, http.MethodPost, "/passport/login", "", dto.LoginRequest{GrantType: "code", ServiceProvider: "wechat", Code: "c-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var info access.TokenInfo
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, e.bob.ID, info.UserID)
}

func TestRegisterAndChangePassword(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/passport/register", "", dto.RegisterRequest{UserName: "carol", Password: "s3cret!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = e.do(t, http.MethodPost, "/passport/register", "", dto.RegisterRequest{UserName: "carol", Password: "s3cret!"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	carol := e.login(t, "carol")
	resp, _ = e.do(t, http.MethodPost, "/passport/password", carol.AccessToken, dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "n3w"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/passport/password", carol.AccessToken, dto.ChangePasswordRequest{OldPassword: "s3cret!", NewPassword: "n3w-pass"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	e.login(t, "alice")

	resp, _ := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body := e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `nuscien_signin_total{grant_type="password",result="ok"} 1`)
	require.Contains(t, string(body), "http_requests_total")

	resp, _ = e.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
