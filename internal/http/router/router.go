// Package router arma el chi.Router del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/http/controllers/health"
	"github.com/dropDatabas3/nuscien/internal/http/controllers/passport"
	"github.com/dropDatabas3/nuscien/internal/http/errors"
	mw "github.com/dropDatabas3/nuscien/internal/http/middlewares"
	"github.com/dropDatabas3/nuscien/internal/metrics"
	"github.com/dropDatabas3/nuscien/internal/rate"
)

// Deps contiene las dependencias del router. Access es obligatorio.
type Deps struct {
	Access *access.Service
	Health *health.Controller

	// LoginLimiter limita POST /passport/login por username. nil = sin límite.
	LoginLimiter rate.Limiter

	// HTTPMetrics instrumenta todas las rutas. Gatherer expone /metrics.
	HTTPMetrics *metrics.HTTP
	Gatherer    prometheus.Gatherer
}

// New construye el handler completo.
//
//	/healthz                 health
//	/metrics                 promhttp
//	/passport/*              sign-in, authorize, permisos, settings
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		deps.HTTPMetrics.Middleware,
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	if deps.Health == nil {
		deps.Health = health.NewController("", nil)
	}
	r.Get("/healthz", deps.Health.Healthz)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	ctrl := passport.NewController(deps.Access)
	r.Route("/passport", func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithSession(deps.Access))
		ctrl.Register(r, mw.WithLoginRateLimit(deps.LoginLimiter))
	})
	return r
}
