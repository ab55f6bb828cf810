package passport_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/http/controllers/passport"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

func newRouter(t *testing.T) (http.Handler, *access.Service) {
	t.Helper()
	svc, err := access.NewService(access.Deps{Accounts: memory.New()})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/passport", func(r chi.Router) {
		passport.NewController(svc).Register(r)
	})
	return r, svc
}

func TestRegisterRoute_CreatesUser(t *testing.T) {
	h, svc := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/passport/register",
		strings.NewReader(`{"username":"alice","password":"a-long-password","email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "alice", body["name"])

	u, err := svc.Accounts().GetUserByLogname(req.Context(), "alice")
	require.NoError(t, err)
	require.True(t, u.ValidatePassword("a-long-password"))
}

func TestRegisterRoute_Duplicate(t *testing.T) {
	h, _ := newRouter(t)
	for i, want := range []int{http.StatusCreated, http.StatusBadRequest} {
		req := httptest.NewRequest(http.MethodPost, "/passport/register",
			strings.NewReader(`{"username":"bob","password":"a-long-password"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code, "attempt %d: %s", i, rec.Body.String())
	}
}
