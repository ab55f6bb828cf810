package gormstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	store "github.com/dropDatabas3/nuscien/internal/store"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/gormstore"
	"github.com/dropDatabas3/nuscien/internal/store/storetest"
)

func openSQLite(t *testing.T) store.Connection {
	t.Helper()
	conn, err := store.Open(context.Background(), store.AdapterConfig{Name: "gorm", Dialect: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, store.Migrate(context.Background(), conn))
	return conn
}

func TestGormRepository_SQLiteContract(t *testing.T) {
	conn := openSQLite(t)
	storetest.Run(t, conn.Accounts())
}

func TestGormRepository_MigrateIsIdempotent(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, store.Migrate(context.Background(), conn))
	require.NoError(t, conn.Ping(context.Background()))
}

func TestGormOpen_UnknownDialect(t *testing.T) {
	_, err := gormstore.Open("oracle", "dsn")
	require.Error(t, err)
}

func TestGormRepository_BaseColumns(t *testing.T) {
	ctx := context.Background()
	db, err := gormstore.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := gormstore.New(db)
	require.NoError(t, repo.AutoMigrate(ctx))

	for _, table := range []string{"app_user", "accessing_client", "access_token", "permission_item"} {
		for _, col := range []string{"id", "state", "created_at", "updated_at"} {
			require.True(t, db.Migrator().HasColumn(table, col), "%s.%s", table, col)
		}
	}

	u := repository.NewUser("alice")
	change, err := repo.SaveUser(ctx, u)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeAdd, change)
	require.NotEmpty(t, u.ID)

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)
	require.Equal(t, repository.StateNormal, got.State)
}

func TestGormRepository_CanceledContext(t *testing.T) {
	repo := openSQLite(t).Accounts()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetUserByLogname(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)

	change, err := repo.SaveUser(ctx, repository.NewUser("alice"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, repository.ChangeInvalid, change)

	_, err = repo.DeleteExpiredTokens(ctx, "u1", "", time.Now())
	require.ErrorIs(t, err, context.Canceled)

	require.ErrorIs(t, repo.DeleteAccessToken(ctx, "tok"), context.Canceled)

	_, err = repo.ListGroupPermissions(ctx, "site-1", []string{"g1"})
	require.ErrorIs(t, err, context.Canceled)
}
