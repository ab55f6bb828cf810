package httpclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	dto "github.com/dropDatabas3/nuscien/internal/http/dto/passport"
	"github.com/dropDatabas3/nuscien/internal/http/router"
	"github.com/dropDatabas3/nuscien/internal/httpclient"
	"github.com/dropDatabas3/nuscien/internal/security/password"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

type remote struct {
	srv   *httptest.Server
	alice *repository.User
	bob   *repository.User
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	repository.HashParams = password.Fast
	ctx := context.Background()
	mem := memory.New()
	svc, err := access.NewService(access.Deps{Accounts: mem, TokenTTL: time.Hour})
	require.NoError(t, err)

	r := &remote{}
	for _, name := range []string{"alice", "bob"} {
		u := repository.NewUser(name)
		require.NoError(t, u.SetPassword("s3cret!"))
		_, err := mem.SaveUser(ctx, u)
		require.NoError(t, err)
		if name == "alice" {
			r.alice = u
		} else {
			r.bob = u
		}
	}
	admin := repository.NewPermissionItem("site-1", repository.TargetUser, r.alice.ID)
	admin.Set([]string{access.DefaultPermissionAdminKey})
	_, err = mem.SavePermission(ctx, admin)
	require.NoError(t, err)

	r.srv = httptest.NewServer(router.New(router.Deps{Access: svc}))
	t.Cleanup(r.srv.Close)
	return r
}

func TestClient_SignInAndAdmin(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()

	c := httpclient.New(r.srv.URL+"/", "", "")
	_, err := c.HasPermission(ctx, "site-1", "read")
	require.True(t, access.IsChangeErrorKind(err, access.ErrorKindUnauthorized))

	bad := c.SignInByPassword(ctx, access.PasswordRequest{UserName: "alice", Password: "nope"})
	require.Equal(t, access.CodeInvalidPassword, bad.ErrorCode)
	require.Nil(t, c.Token())

	info := c.SignInByPassword(ctx, access.PasswordRequest{UserName: "alice", Password: "s3cret!"})
	require.True(t, info.Succeeded(), info.ErrorDescription)
	require.Equal(t, info.AccessToken, c.Token().AccessToken)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, r.alice.ID, me.User.ID)

	item, err := c.SavePermission(ctx, "site-1", repository.TargetUser, r.bob.ID, []string{"read"})
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, item.List())
	require.Equal(t, repository.TargetUser, item.TargetType)

	item, err = c.GetPermission(ctx, "site-1", repository.TargetUser, r.bob.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, item.List())

	_, err = c.SavePermission(ctx, "site-2", repository.TargetUser, r.bob.ID, []string{"read"})
	require.True(t, access.IsChangeErrorKind(err, access.ErrorKindForbidden))

	ok, err := c.HasPermission(ctx, "site-1", access.DefaultPermissionAdminKey)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.HasPermission(ctx, "site-1", access.DefaultPermissionAdminKey, "other")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = c.HasAnyPermission(ctx, "site-1", access.DefaultPermissionAdminKey, "other")
	require.NoError(t, err)
	require.True(t, ok)

	code, err := c.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "partner", Code: "p-1"})
	require.NoError(t, err)
	require.Equal(t, r.alice.ID, code.OwnerID)

	other := httpclient.New(r.srv.URL, "", "")
	viaCode := other.SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "partner", Code: "p-1"})
	require.True(t, viaCode.Succeeded(), viaCode.ErrorDescription)
	require.Equal(t, r.alice.ID, viaCode.UserID)

	require.NoError(t, c.SignOut(ctx))
	require.Nil(t, c.Token())
	gone := other.Authorize(ctx, info.AccessToken)
	require.Equal(t, access.CodeInvalidAccessToken, gone.ErrorCode)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := httpclient.New(url, "", "")
	info := c.SignInByPassword(context.Background(), access.PasswordRequest{UserName: "a", Password: "b"})
	require.Equal(t, access.CodeServerError, info.ErrorCode)

	c.SetToken(&access.TokenInfo{AccessToken: "t", TokenType: access.TokenTypeBearer})
	_, err := c.GetPermission(context.Background(), "s", repository.TargetUser, "u")
	require.True(t, access.IsChangeErrorKind(err, access.ErrorKindService))

	require.Equal(t, access.CodeInvalidRequest, c.SignIn(context.Background(), nil).ErrorCode)
}

func TestClient_UnexpectedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	info := httpclient.New(srv.URL, "", "").SignInByClientCredentials(context.Background(), access.ClientCredentialsRequest{ClientID: "c", ClientSecret: "s"})
	require.Equal(t, access.CodeServerError, info.ErrorCode)
}

func writeToken(w http.ResponseWriter, info access.TokenInfo) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func TestClient_RetriesAfterRenew(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/passport/login":
			var req dto.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.GrantType != "refresh_token" || req.RefreshToken != "r-1" {
				w.WriteHeader(http.StatusBadRequest)
				writeToken(w, *access.Failed(access.CodeInvalidRequest, "unexpected"))
				return
			}
			refreshes.Add(1)
			writeToken(w, access.TokenInfo{AccessToken: "new", RefreshToken: "r-1", TokenType: "Bearer", ExpiredAfter: time.Hour})
		case "/passport/me":
			if r.Header.Get("Authorization") != "Bearer new" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Code: dto.ErrCodeUnauthorized, Message: "expired"})
				return
			}
			_ = json.NewEncoder(w).Encode(dto.MeResponse{ResourceID: "u1"})
		}
	}))
	defer srv.Close()

	c := httpclient.New(srv.URL, "", "")
	c.SetToken(&access.TokenInfo{AccessToken: "old", RefreshToken: "r-1", TokenType: "Bearer", ExpiredAfter: time.Minute})

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", me.ResourceID)
	require.Equal(t, "new", c.Token().AccessToken)
	require.Equal(t, int32(1), refreshes.Load())
}

func TestClient_RenewCoalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeToken(w, access.TokenInfo{AccessToken: "renewed", RefreshToken: "r", TokenType: "Bearer", ExpiredAfter: time.Hour})
	}))
	defer srv.Close()

	c := httpclient.New(srv.URL, "", "")
	c.SetToken(&access.TokenInfo{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"})

	const n = 8
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	results := make([]*access.TokenInfo, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i] = c.Renew(context.Background())
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, res := range results {
		require.Equal(t, "renewed", res.AccessToken)
	}
}
