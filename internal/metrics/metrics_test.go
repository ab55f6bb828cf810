package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
)

func TestAccess_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewAccess(reg)
	require.NoError(t, err)

	a.SignIn(access.GrantPassword, "")
	a.SignIn(access.GrantPassword, "")
	a.SignIn(access.GrantPassword, access.CodeInvalidPassword)
	a.TokenRenewed()
	a.ExpiredTokensDeleted(3)
	a.ExpiredTokensDeleted(0)

	require.Equal(t, 2.0, value(t, a.signIns.WithLabelValues("password", "ok")))
	require.Equal(t, 1.0, value(t, a.signIns.WithLabelValues("password", "invalid_password")))
	require.Equal(t, 1.0, value(t, a.renewals))
	require.Equal(t, 3.0, value(t, a.deleted))

	// registrar dos veces reutiliza los collectors
	again, err := NewAccess(reg)
	require.NoError(t, err)
	again.TokenRenewed()
	require.Equal(t, 2.0, value(t, a.renewals))
}

func TestHTTP_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewHTTP(reg)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := h.Middleware(next)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/passport/permissions/site-1/user/0123456789abcdef0123", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, 1.0, value(t, h.requests.WithLabelValues("GET", "/passport/permissions/site-1/user/:param", "418")))

	var nilHTTP *HTTP
	require.NotNil(t, nilHTTP.Middleware(next))
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/":                  "/",
		"/passport/login":    "/passport/login",
		"/users/42?x=1":      "/users/:param",
		"/t/" + hex64():      "/t/:param",
		"//double//slashes/": "/double/slashes",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePath(in), in)
	}
}

func hex64() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

// value lee el valor actual de un counter o gauge.
func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric")
	return 0
}
