package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/http/middlewares"
	"github.com/dropDatabas3/nuscien/internal/rate"
	"github.com/dropDatabas3/nuscien/internal/security/password"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) middlewares.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middlewares.ChainFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") },
		mk("A"), nil, mk("B"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"A", "B", "h"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := middlewares.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middlewares.GetRequestID(r.Context())
	}), middlewares.WithRequestID())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(rr, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 32)
}

func TestWithRecover(t *testing.T) {
	h := middlewares.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), middlewares.WithRecover())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "INTERNAL_SERVER_ERROR")
}

func newService(t *testing.T) (*access.Service, *memory.Repository) {
	t.Helper()
	repository.HashParams = password.Fast
	mem := memory.New()
	svc, err := access.NewService(access.Deps{Accounts: mem, TokenTTL: time.Hour})
	require.NoError(t, err)

	u := repository.NewUser("alice")
	require.NoError(t, u.SetPassword("s3cret!"))
	_, err = mem.SaveUser(context.Background(), u)
	require.NoError(t, err)
	return svc, mem
}

func TestWithSession(t *testing.T) {
	svc, _ := newService(t)
	info := svc.NewSession().SignInByPassword(context.Background(), access.PasswordRequest{UserName: "alice", Password: "s3cret!"})
	require.True(t, info.Succeeded())

	var sess *access.Session
	h := middlewares.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess = middlewares.GetSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), middlewares.WithSession(svc), middlewares.RequireSession())

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+info.AccessToken)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Equal(t, info.UserID, sess.UserID())
	})

	t.Run("query", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?access_token="+info.AccessToken, nil))
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	})
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?access_token=q", nil)
	require.Equal(t, "q", middlewares.BearerToken(req))
	req.Header.Set("Authorization", "bearer  h ")
	require.Equal(t, "h", middlewares.BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	require.Equal(t, "q", middlewares.BearerToken(req))
}

func TestWithLoginRateLimit(t *testing.T) {
	lim := rate.NewMemoryLimiter(2, time.Minute)
	var body string
	h := middlewares.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		body = r.PostForm.Get("username")
		w.WriteHeader(http.StatusOK)
	}), middlewares.WithLoginRateLimit(lim))

	post := func(form string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/passport/login", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, post("grant_type=password&username=Alice").Code)
	require.Equal(t, "Alice", body, "body is restored for the handler")
	require.Equal(t, http.StatusOK, post("grant_type=password&username=alice").Code)

	rr := post("grant_type=password&username=ALICE")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	// otro user y otros grants no cuentan
	require.Equal(t, http.StatusOK, post("grant_type=password&username=bob").Code)
	require.Equal(t, http.StatusOK, post("grant_type=refresh_token&refresh_token=x&username=alice").Code)
}

func TestWithLoginRateLimit_JSON(t *testing.T) {
	lim := rate.NewMemoryLimiter(1, time.Minute)
	h := middlewares.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), middlewares.WithLoginRateLimit(lim))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/passport/login", strings.NewReader(`{"grant_type":"password","username":"carol"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	require.Equal(t, http.StatusOK, post())
	require.Equal(t, http.StatusTooManyRequests, post())
}
