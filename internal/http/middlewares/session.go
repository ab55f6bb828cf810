package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/http/errors"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// BearerToken extrae el access token del header Authorization o, si falta,
// del query param access_token.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// WithSession crea una access.Session por request y, si viene un token, lo
// autoriza. Un token inválido deja la sesión anónima; los handlers deciden.
// El logger del contexto se enriquece con user_id/client_id.
func WithSession(svc *access.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess := svc.NewSession()

			if tok := BearerToken(r); tok != "" {
				info := sess.Authorize(ctx, tok)
				if info.Succeeded() {
					log := logger.From(ctx)
					if uid := sess.UserID(); uid != "" {
						log = log.With(logger.UserID(uid))
					}
					if cid := sess.ClientID(); cid != "" {
						log = log.With(logger.ClientID(cid))
					}
					ctx = logger.ToContext(ctx, log)
				}
			}
			ctx = WithSessionContext(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession corta con 401 si la sesión no está autenticada.
func RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil || !sess.IsAuthenticated() {
				w.Header().Set("WWW-Authenticate", `Bearer realm="nuscien"`)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
