package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/nuscien/internal/access"
)

// Access expone los contadores del sign-in. Implementa access.Recorder.
type Access struct {
	signIns  *prometheus.CounterVec
	renewals prometheus.Counter
	deleted  prometheus.Counter
}

var _ access.Recorder = (*Access)(nil)

// NewAccess crea y registra las métricas del sign-in. Si ya estaban registradas
// en reg reutiliza las existentes.
func NewAccess(reg prometheus.Registerer) (*Access, error) {
	a := &Access{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nuscien",
			Name:      "signin_total",
			Help:      "Sign-ins por grant type y resultado",
		}, []string{"grant_type", "result"}),
		renewals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nuscien",
			Name:      "token_renewals_total",
			Help:      "Tokens renovados por estar cerca de expirar",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nuscien",
			Name:      "expired_tokens_deleted_total",
			Help:      "Tokens expirados borrados del store",
		}),
	}
	var err error
	if a.signIns, err = register(reg, a.signIns); err != nil {
		return nil, err
	}
	if a.renewals, err = register(reg, a.renewals); err != nil {
		return nil, err
	}
	if a.deleted, err = register(reg, a.deleted); err != nil {
		return nil, err
	}
	return a, nil
}

// SignIn cuenta un intento. result es "ok" o el código de error.
func (a *Access) SignIn(grant access.GrantType, errorCode string) {
	result := errorCode
	if result == "" {
		result = "ok"
	}
	g := grant.String()
	if g == "" {
		g = "unknown"
	}
	a.signIns.WithLabelValues(g, result).Inc()
}

func (a *Access) TokenRenewed() { a.renewals.Inc() }

func (a *Access) ExpiredTokensDeleted(n int) {
	if n > 0 {
		a.deleted.Add(float64(n))
	}
}

// register registra c en reg (default si nil). Si ya existe retorna el collector registrado.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
