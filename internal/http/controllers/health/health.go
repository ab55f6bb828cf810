// Package health contiene el controller de GET /healthz.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/nuscien/internal/http/helpers"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// Check es un chequeo de componente (store, redis, ...). nil = ok.
type Check func(ctx context.Context) error

type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Controller responde el estado de los componentes registrados.
type Controller struct {
	Version string
	Timeout time.Duration
	checks  map[string]Check
}

func NewController(version string, checks map[string]Check) *Controller {
	return &Controller{Version: version, Timeout: 2 * time.Second, checks: checks}
}

// Healthz maneja GET /healthz. 503 si algún componente falla.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.Timeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Healthz"))

	resp := Response{
		Status:     "ok",
		Version:    c.Version,
		Components: make(map[string]string, len(c.checks)),
		Timestamp:  time.Now().UTC(),
	}
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			log.Warn("component unhealthy", logger.Component(name), logger.Err(err))
			resp.Components[name] = "unavailable"
			resp.Status = "unavailable"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}
