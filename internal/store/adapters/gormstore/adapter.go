// Package gormstore implementa el AccountRepository con gorm. Soporta los
// dialectos sqlite (default) y postgres.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	store "github.com/dropDatabas3/nuscien/internal/store"
)

func init() {
	store.RegisterAdapter(&gormAdapter{})
}

type gormAdapter struct{}

func (a *gormAdapter) Name() string { return "gorm" }

func (a *gormAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	db, err := Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm: get sql db: %w", err)
	}
	if isSQLiteMemory(cfg.Dialect, cfg.DSN) {
		// Cada conexión a :memory: es una base distinta
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm: ping failed: %w", err)
	}
	return &gormConnection{db: db, repo: New(db)}, nil
}

// Open abre la base según el dialecto ("sqlite" o "postgres").
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "", "sqlite", "sqlite3":
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql", "pg":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("gorm: unsupported dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newZapLogger(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open database: %w", err)
	}
	return db, nil
}

func isSQLiteMemory(dialect, dsn string) bool {
	d := strings.ToLower(dialect)
	if d != "" && d != "sqlite" && d != "sqlite3" {
		return false
	}
	return dsn == "" || strings.Contains(dsn, ":memory:")
}

type gormConnection struct {
	db   *gorm.DB
	repo *Repository
}

func (c *gormConnection) Name() string { return "gorm" }

func (c *gormConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *gormConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *gormConnection) Accounts() repository.AccountRepository { return c.repo }

// Migrate corre AutoMigrate sobre todos los modelos.
func (c *gormConnection) Migrate(ctx context.Context) error {
	return c.repo.AutoMigrate(ctx)
}

// mapErr traduce errores de gorm a los sentinels del dominio.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}
