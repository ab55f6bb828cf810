// Package app arma las dependencias del servicio a partir de la config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/config"
	"github.com/dropDatabas3/nuscien/internal/http/controllers/health"
	"github.com/dropDatabas3/nuscien/internal/http/router"
	"github.com/dropDatabas3/nuscien/internal/metrics"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	"github.com/dropDatabas3/nuscien/internal/providers/google"
	"github.com/dropDatabas3/nuscien/internal/providers/jwtcode"
	"github.com/dropDatabas3/nuscien/internal/providers/remote"
	"github.com/dropDatabas3/nuscien/internal/rate"
	"github.com/dropDatabas3/nuscien/internal/security/password"
	"github.com/dropDatabas3/nuscien/internal/store"

	// registra memory, postgres y gorm
	_ "github.com/dropDatabas3/nuscien/internal/store/adapters/dal"
)

// Version la setea el build (-ldflags).
var Version = "dev"

// Container agrupa lo que comparten serve y los comandos admin.
type Container struct {
	Config   *config.Config
	Conn     store.Connection
	Access   *access.Service
	Registry *prometheus.Registry
	Limiter  rate.Limiter
	Redis    *rdb.Client
}

// OpenStore abre la conexión al store configurado.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Connection, error) {
	return store.Open(ctx, store.AdapterConfig{
		Name:            cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		Dialect:         cfg.Storage.Dialect,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	})
}

// Build abre el store y arma el access.Service con providers, métricas y
// rate limiter. Cerrar con Close.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.From(ctx).With(logger.Component("app"), logger.Op("app.Build"))

	conn, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c := &Container{Config: cfg, Conn: conn, Registry: prometheus.NewRegistry()}

	if err := c.build(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	log.Info("container ready",
		logger.String("storage", conn.Name()),
		logger.Any("login_providers", c.Access.LoginProviders().Names()),
		logger.Any("code_verifiers", c.Access.CodeVerifiers().Names()),
	)
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.Config
	accounts := c.Conn.Accounts()

	// Paso 1: métricas
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.NewAccess(c.Registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if p, ok := c.Conn.(interface{ Pool() *pgxpool.Pool }); ok {
		if err := metrics.RegisterPool(c.Registry, p.Pool); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// Paso 2: password policy + blacklist
	var blacklist *password.Blacklist
	if path := cfg.Security.PasswordBlacklistPath; path != "" {
		if blacklist, err = password.LoadBlacklist(path); err != nil {
			return fmt.Errorf("password blacklist: %w", err)
		}
	}
	pp := cfg.Security.PasswordPolicy

	// Paso 3: service
	c.Access, err = access.NewService(access.Deps{
		Accounts:           accounts,
		TokenTTL:           cfg.TokenTTL(),
		PermissionAdminKey: cfg.Token.PermissionAdminKey,
		PasswordPolicy: password.Policy{
			MinLength:     pp.MinLength,
			RequireUpper:  pp.RequireUpper,
			RequireLower:  pp.RequireLower,
			RequireDigit:  pp.RequireDigit,
			RequireSymbol: pp.RequireSymbol,
		},
		Blacklist: blacklist,
		Metrics:   rec,
	})
	if err != nil {
		return err
	}

	// Paso 4: providers
	pr := cfg.Providers
	if pr.Google.Enabled {
		c.Access.CodeVerifiers().Register(google.New(pr.Google.ClientID, accounts))
	}
	if pr.JWTCode.Enabled {
		v := jwtcode.New(pr.JWTCode.Name, []byte(pr.JWTCode.Secret), accounts)
		v.Issuer = pr.JWTCode.Issuer
		v.Saved = pr.JWTCode.HasSaved
		c.Access.CodeVerifiers().Register(v)
	}
	if pr.Remote.Enabled {
		p := remote.New(pr.Remote.Domain, pr.Remote.BaseURL, accounts)
		p.ClientID = pr.Remote.ClientID
		p.ClientSecret = pr.Remote.ClientSecret
		p.AutoCreate = pr.Remote.AutoCreate
		p.HTTP = &http.Client{Timeout: cfg.RemoteTimeout()}
		c.Access.LoginProviders().Register(p)
	}

	// Paso 5: rate limiter del login
	c.Limiter = nil
	if cfg.Rate.Enabled {
		switch cfg.Cache.Kind {
		case "redis":
			c.Redis = rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
			c.Limiter = rate.NewRedisLimiter(c.Redis, cfg.Cache.Redis.Prefix, cfg.Rate.Login.Limit, cfg.LoginWindow())
		default:
			c.Limiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginWindow())
		}
	}
	return nil
}

// Handler arma el router HTTP.
func (c *Container) Handler() (http.Handler, error) {
	httpm, err := metrics.NewHTTP(c.Registry)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	checks := map[string]health.Check{"store": c.Conn.Ping}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return router.New(router.Deps{
		Access:       c.Access,
		Health:       health.NewController(Version, checks),
		LoginLimiter: c.Limiter,
		HTTPMetrics:  httpm,
		Gatherer:     c.Registry,
	}), nil
}

// Migrate crea el schema si el store lo soporta.
func (c *Container) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return store.Migrate(ctx, c.Conn)
}

// Close cierra redis y el store.
func (c *Container) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Conn != nil {
		errs = append(errs, c.Conn.Close())
	}
	return errors.Join(errs...)
}
