package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/http/errors"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	"github.com/dropDatabas3/nuscien/internal/rate"
)

// loginBodyMax es lo máximo que se lee del body para sacar el username.
const loginBodyMax = 64 << 10

// peekLoginFields lee grant_type y username del body (JSON o form) y repone el
// body para el handler.
func peekLoginFields(r *http.Request) (grant, user string) {
	if r.Method != http.MethodPost || r.Body == nil {
		return "", ""
	}
	var buf bytes.Buffer
	_, _ = io.CopyN(&buf, r.Body, loginBodyMax)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))

	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/json") {
		var tmp struct {
			GrantType string `json:"grant_type"`
			UserName  string `json:"username"`
		}
		if err := json.Unmarshal(buf.Bytes(), &tmp); err == nil {
			return tmp.GrantType, tmp.UserName
		}
		return "", ""
	}
	vals, err := url.ParseQuery(buf.String())
	if err != nil {
		return "", ""
	}
	return vals.Get("grant_type"), vals.Get("username")
}

// WithLoginRateLimit limita los sign-in por password por username
// (rate.LoginKey). Otros grants pasan sin contar.
func WithLoginRateLimit(limiter rate.Limiter) Middleware {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, user := peekLoginFields(r)
			g, ok := access.ParseGrantType(grant)
			if !ok || g != access.GrantPassword || strings.TrimSpace(user) == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), rate.LoginKey(user))
			if err != nil {
				// Paso: fail-open si el limiter no responde
				logger.From(r.Context()).Warn("rate limit error", logger.Op("rate.login"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
