// Package storetest contiene la batería de contrato que todo AccountRepository
// debe pasar. Los adapters la ejecutan desde sus propios tests.
package storetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// Run ejecuta todos los casos sobre repo. El repo debe arrancar vacío.
func Run(t *testing.T, repo repository.AccountRepository) {
	t.Helper()
	t.Run("users", func(t *testing.T) { users(t, repo) })
	t.Run("clients", func(t *testing.T) { clients(t, repo) })
	t.Run("tokens", func(t *testing.T) { tokens(t, repo) })
	t.Run("codes", func(t *testing.T) { codes(t, repo) })
	t.Run("groups_and_permissions", func(t *testing.T) { groupsAndPermissions(t, repo) })
	t.Run("settings", func(t *testing.T) { settings(t, repo) })
}

func users(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()

	u := repository.NewUser("Alice")
	u.PasswordHash = "hash"
	u.Email = "alice@example.com"
	m, err := repo.SaveUser(ctx, u)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeAdd, m)
	require.NotEmpty(t, u.ID)
	require.False(t, u.CreationTime.IsZero())

	got, err := repo.GetUserByLogname(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)
	require.Empty(t, got.Phone)

	got.Nickname = "Al"
	m, err = repo.SaveUser(ctx, got)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeUpdate, m)

	byID, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Al", byID.Nickname)

	_, err = repo.SaveUser(ctx, repository.NewUser("ALICE"))
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.GetUserByLogname(ctx, "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetUserByLogname(ctx, "   ")
	require.ErrorIs(t, err, repository.ErrNotFound)

	m, err = repo.SaveUser(ctx, repository.NewUser(""))
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.Equal(t, repository.ChangeInvalid, m)
}

func clients(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()

	c := repository.NewAccessingClient("app-1")
	key, err := c.RenewCredentialKey()
	require.NoError(t, err)
	_, err = repo.SaveClient(ctx, c)
	require.NoError(t, err)

	got, err := repo.GetClientByName(ctx, "app-1")
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.True(t, got.ValidateCredentialKey(key))

	got, err = repo.GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "app-1", got.Name)

	_, err = repo.SaveClient(ctx, repository.NewAccessingClient("app-1"))
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.GetClientByName(ctx, "")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func tokens(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()
	now := time.Now().UTC()

	live := &repository.Token{
		Base:           repository.Base{State: repository.StateNormal},
		Name:           "access-live",
		RefreshToken:   "refresh-1",
		UserID:         "user-1",
		ClientID:       "client-1",
		GrantType:      "password",
		ScopeString:    "read write",
		ExpirationTime: now.Add(time.Hour),
	}
	older := &repository.Token{
		Base:           repository.Base{State: repository.StateNormal},
		Name:           "access-old",
		RefreshToken:   "refresh-1",
		UserID:         "user-1",
		ExpirationTime: now.Add(-time.Minute),
	}
	clientOnly := &repository.Token{
		Base:           repository.Base{State: repository.StateNormal},
		Name:           "access-client",
		ClientID:       "client-1",
		ExpirationTime: now.Add(-time.Second),
	}
	for _, tk := range []*repository.Token{live, older, clientOnly} {
		m, err := repo.SaveToken(ctx, tk)
		require.NoError(t, err)
		require.Equal(t, repository.ChangeAdd, m)
	}

	got, err := repo.GetTokenByName(ctx, "access-live")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, []string{"read", "write"}, got.Scopes())

	byRefresh, err := repo.GetTokenByRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-live", byRefresh.Name, "newest expiration wins")

	_, err = repo.SaveToken(ctx, &repository.Token{Name: "orphan", ExpirationTime: now})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = repo.SaveToken(ctx, &repository.Token{Name: "access-live", UserID: "user-2", ExpirationTime: now})
	require.ErrorIs(t, err, repository.ErrConflict)

	// user: borra solo los expirados del user
	n, err := repo.DeleteExpiredTokens(ctx, "user-1", "", now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = repo.GetTokenByName(ctx, "access-old")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetTokenByName(ctx, "access-client")
	require.NoError(t, err)

	// client: solo tokens sin user
	n, err = repo.DeleteExpiredTokens(ctx, "", "client-1", now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = repo.GetTokenByName(ctx, "access-live")
	require.NoError(t, err)

	_, err = repo.DeleteExpiredTokens(ctx, "", "", now)
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	require.NoError(t, repo.DeleteAccessToken(ctx, "access-live"))
	require.ErrorIs(t, repo.DeleteAccessToken(ctx, "access-live"), repository.ErrNotFound)
}

func codes(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()

	c := repository.NewAuthorizationCode(" Google ", repository.OwnerTypeUser, "user-1")
	c.SetCode("the-code")
	_, err := repo.SaveAuthorizationCode(ctx, c)
	require.NoError(t, err)

	got, err := repo.GetAuthorizationCodeByCode(ctx, "google", c.CodeHash)
	require.NoError(t, err)
	require.Equal(t, repository.OwnerTypeUser, got.OwnerType)
	require.True(t, got.ValidateCode("the-code"))

	byOwner, err := repo.GetAuthorizationCodeByOwner(ctx, "GOOGLE", repository.OwnerTypeUser, "user-1")
	require.NoError(t, err)
	require.Equal(t, c.ID, byOwner.ID)

	// los codes no activos no se resuelven por valor
	byOwner.State = repository.StateDeleted
	m, err := repo.SaveAuthorizationCode(ctx, byOwner)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeUpdate, m)
	_, err = repo.GetAuthorizationCodeByCode(ctx, "google", c.CodeHash)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.SaveAuthorizationCode(ctx, &repository.AuthorizationCode{ServiceProvider: "x"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func groupsAndPermissions(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()

	g1 := repository.NewUserGroup("editors", "site-a")
	g2 := repository.NewUserGroup("viewers", "site-a")
	for _, g := range []*repository.UserGroup{g1, g2} {
		_, err := repo.SaveGroup(ctx, g)
		require.NoError(t, err)
	}
	got, err := repo.GetGroupByID(ctx, g1.ID)
	require.NoError(t, err)
	require.Equal(t, "editors", got.Name)

	_, err = repo.SaveRelationship(ctx, repository.NewMembership(g1.ID, "user-9", repository.GroupRoleMember))
	require.NoError(t, err)
	_, err = repo.SaveRelationship(ctx, repository.NewMembership(g2.ID, "user-9", 0))
	require.NoError(t, err)

	// misma (group, user) reusa la fila
	again := repository.NewMembership(g1.ID, "user-9", repository.GroupRoleManager)
	m, err := repo.SaveRelationship(ctx, again)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeUpdate, m)

	rels, err := repo.ListRelationshipsByUser(ctx, "user-9")
	require.NoError(t, err)
	require.Len(t, rels, 2)

	ids := []string{rels[0].GroupID, rels[1].GroupID}
	sort.Strings(ids)
	want := []string{g1.ID, g2.ID}
	sort.Strings(want)
	require.Equal(t, want, ids)

	// membresía inactiva no cuenta
	again.State = repository.StateDeleted
	_, err = repo.SaveRelationship(ctx, again)
	require.NoError(t, err)
	rels, err = repo.ListRelationshipsByUser(ctx, "user-9")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, g2.ID, rels[0].GroupID)

	p := repository.NewPermissionItem("site-a", repository.TargetGroup, g1.ID)
	p.Set([]string{"read", "write"})
	m, err = repo.SavePermission(ctx, p)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeAdd, m)

	replacement := repository.NewPermissionItem("site-a", repository.TargetGroup, g1.ID)
	replacement.Set([]string{"read"})
	m, err = repo.SavePermission(ctx, replacement)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeUpdate, m)
	require.Equal(t, p.ID, replacement.ID)

	stored, err := repo.GetPermission(ctx, "site-a", repository.TargetGroup, g1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, stored.List())

	other := repository.NewPermissionItem("site-b", repository.TargetGroup, g2.ID)
	other.Set([]string{"admin"})
	_, err = repo.SavePermission(ctx, other)
	require.NoError(t, err)

	list, err := repo.ListGroupPermissions(ctx, "site-a", []string{g1.ID, g2.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, g1.ID, list[0].TargetID)

	list, err = repo.ListGroupPermissions(ctx, "site-a", nil)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = repo.GetPermission(ctx, "site-a", repository.TargetUser, "user-9")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.SavePermission(ctx, repository.NewPermissionItem("site-a", repository.TargetUnknown, "x"))
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func settings(t *testing.T, repo repository.AccountRepository) {
	ctx := context.Background()

	s := &repository.SettingsEntry{Base: repository.Base{State: repository.StateNormal}, SiteID: "site-a", Key: "theme", Value: `{"dark":true}`}
	m, err := repo.SaveSettings(ctx, s)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeAdd, m)

	next := &repository.SettingsEntry{Base: repository.Base{State: repository.StateNormal}, SiteID: "site-a", Key: "theme", Value: `{"dark":false}`}
	m, err = repo.SaveSettings(ctx, next)
	require.NoError(t, err)
	require.Equal(t, repository.ChangeUpdate, m)

	got, err := repo.GetSettings(ctx, "site-a", "theme")
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.JSONEq(t, `{"dark":false}`, got.Value)

	_, err = repo.GetSettings(ctx, "site-b", "theme")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
