package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// memory | postgres | gorm
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		// Dialect del adapter gorm: sqlite | postgres
		Dialect  string `yaml:"dialect"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis. Lo usa el rate limiter.
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Token struct {
		TTL                string `yaml:"ttl"`
		PermissionAdminKey string `yaml:"permission_admin_key"`
	} `yaml:"token"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Security struct {
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
		PasswordPolicy        struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`

	Providers struct {
		Google struct {
			Enabled  bool   `yaml:"enabled"`
			ClientID string `yaml:"client_id"`
		} `yaml:"google"`

		// JWTCode: codes firmados HS256 por un partner.
		JWTCode struct {
			Enabled  bool   `yaml:"enabled"`
			Name     string `yaml:"name"`
			Secret   string `yaml:"secret"`
			Issuer   string `yaml:"issuer"`
			HasSaved bool   `yaml:"has_saved"`
		} `yaml:"jwtcode"`

		// Remote: login por password delegado a otro servidor para un domain.
		Remote struct {
			Enabled      bool   `yaml:"enabled"`
			Domain       string `yaml:"domain"`
			BaseURL      string `yaml:"base_url"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			Timeout      string `yaml:"timeout"`
			// AutoCreate da de alta el user local si no existe.
			AutoCreate bool `yaml:"auto_create"`
		} `yaml:"remote"`
	} `yaml:"providers"`
}

// Default retorna la config con defaults aplicados (sin YAML ni env).
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load lee el YAML (path vacío = solo defaults), aplica defaults, overrides por
// env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()

	// Overrides por env
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Normalizar ruta de blacklist (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && path != "" {
		if !filepath.IsAbs(p) {
			c.Security.PasswordBlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "gorm" && c.Storage.Dialect == "" {
		c.Storage.Dialect = "sqlite"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "nuscien:rl:"
	}
	if c.Token.TTL == "" {
		c.Token.TTL = "2h"
	}
	if c.Token.PermissionAdminKey == "" {
		c.Token.PermissionAdminKey = "site-admin"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Providers.JWTCode.Name == "" {
		c.Providers.JWTCode.Name = "partner"
	}
	if c.Providers.Remote.Timeout == "" {
		c.Providers.Remote.Timeout = "10s"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("GORM_DIALECT"); ok {
		c.Storage.Dialect = strings.ToLower(v)
	}
	if v, ok := getEnvInt("STORAGE_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// TOKEN
	if v, ok := getEnvStr("TOKEN_TTL"); ok {
		c.Token.TTL = v
	}
	if v, ok := getEnvStr("PERMISSION_ADMIN_KEY"); ok {
		c.Token.PermissionAdminKey = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}

	// PROVIDERS
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
		c.Providers.Google.Enabled = true
	}
	if v, ok := getEnvStr("JWTCODE_SECRET"); ok {
		c.Providers.JWTCode.Secret = v
		c.Providers.JWTCode.Enabled = true
	}
	if v, ok := getEnvStr("REMOTE_LOGIN_DOMAIN"); ok {
		c.Providers.Remote.Domain = v
	}
	if v, ok := getEnvStr("REMOTE_LOGIN_BASE_URL"); ok {
		c.Providers.Remote.BaseURL = v
		c.Providers.Remote.Enabled = true
	}
	if v, ok := getEnvStr("REMOTE_LOGIN_CLIENT_ID"); ok {
		c.Providers.Remote.ClientID = v
	}
	if v, ok := getEnvStr("REMOTE_LOGIN_CLIENT_SECRET"); ok {
		c.Providers.Remote.ClientSecret = v
	}
}

// Validate revisa drivers, duraciones y providers habilitados.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case "gorm":
		if c.Storage.Dialect != "sqlite" && c.Storage.Dialect != "postgres" {
			errs = append(errs, fmt.Errorf("storage.dialect %q is not supported", c.Storage.Dialect))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q is not supported", c.Cache.Kind))
	}

	durations := map[string]string{
		"token.ttl":                          c.Token.TTL,
		"rate.login.window":                  c.Rate.Login.Window,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
		"providers.remote.timeout":           c.Providers.Remote.Timeout,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}

	if c.Providers.JWTCode.Enabled && len(c.Providers.JWTCode.Secret) < 16 {
		errs = append(errs, errors.New("providers.jwtcode.secret must have at least 16 bytes"))
	}
	if c.Providers.Google.Enabled && strings.TrimSpace(c.Providers.Google.ClientID) == "" {
		errs = append(errs, errors.New("providers.google.client_id is required"))
	}
	if c.Providers.Remote.Enabled {
		if strings.TrimSpace(c.Providers.Remote.BaseURL) == "" || strings.TrimSpace(c.Providers.Remote.Domain) == "" {
			errs = append(errs, errors.New("providers.remote.base_url and domain are required"))
		}
	}
	return errors.Join(errs...)
}

// IsProd indica si app_env es prod.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// TokenTTL retorna token.ttl parseado. Validate ya garantizó el formato.
func (c *Config) TokenTTL() time.Duration { return mustDur(c.Token.TTL, 2*time.Hour) }

// LoginWindow retorna rate.login.window parseado.
func (c *Config) LoginWindow() time.Duration { return mustDur(c.Rate.Login.Window, time.Minute) }

// ConnMaxLifetime retorna storage.postgres.conn_max_lifetime (0 si vacío).
func (c *Config) ConnMaxLifetime() time.Duration { return mustDur(c.Storage.Postgres.ConnMaxLifetime, 0) }

// RemoteTimeout retorna providers.remote.timeout parseado.
func (c *Config) RemoteTimeout() time.Duration { return mustDur(c.Providers.Remote.Timeout, 10*time.Second) }

func mustDur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return def
}
