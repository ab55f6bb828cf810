package repository

import (
	"context"
	"time"
)

// AccountRepository es el contrato de almacenamiento que consume el resource access client.
//
// Los Get* retornan ErrNotFound si no hay una entidad que coincida.
// Los Save* asignan ID/timestamps a entidades nuevas y retornan ChangeAdd o ChangeUpdate
// (ChangeInvalid si el store rechaza la entidad).
type AccountRepository interface {
	// ─── Users ───

	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByLogname busca por login name (case-insensitive).
	GetUserByLogname(ctx context.Context, name string) (*User, error)

	SaveUser(ctx context.Context, u *User) (ChangeMethod, error)

	// ─── Groups ───

	GetGroupByID(ctx context.Context, id string) (*UserGroup, error)
	SaveGroup(ctx context.Context, g *UserGroup) (ChangeMethod, error)
	SaveRelationship(ctx context.Context, rel *UserGroupRelationship) (ChangeMethod, error)

	// ListRelationshipsByUser retorna las membresías activas del user.
	ListRelationshipsByUser(ctx context.Context, userID string) ([]UserGroupRelationship, error)

	// ─── Clients ───

	GetClientByID(ctx context.Context, id string) (*AccessingClient, error)

	// GetClientByName busca por app id.
	GetClientByName(ctx context.Context, name string) (*AccessingClient, error)

	SaveClient(ctx context.Context, c *AccessingClient) (ChangeMethod, error)

	// ─── Tokens ───

	GetTokenByName(ctx context.Context, accessToken string) (*Token, error)

	// GetTokenByRefreshToken retorna el token más reciente (mayor ExpirationTime)
	// que comparte el refresh token.
	GetTokenByRefreshToken(ctx context.Context, refreshToken string) (*Token, error)

	SaveToken(ctx context.Context, t *Token) (ChangeMethod, error)

	// DeleteAccessToken borra físicamente el token con ese access token.
	DeleteAccessToken(ctx context.Context, accessToken string) error

	// DeleteExpiredTokens borra físicamente los tokens expirados en now del user
	// (o del client si userID es vacío). Retorna cuántos borró.
	DeleteExpiredTokens(ctx context.Context, userID, clientID string, now time.Time) (int, error)

	// ─── Authorization codes ───

	GetAuthorizationCodeByCode(ctx context.Context, provider, codeHash string) (*AuthorizationCode, error)
	GetAuthorizationCodeByOwner(ctx context.Context, provider string, ownerType OwnerType, ownerID string) (*AuthorizationCode, error)
	SaveAuthorizationCode(ctx context.Context, c *AuthorizationCode) (ChangeMethod, error)

	// ─── Permissions ───

	GetPermission(ctx context.Context, siteID string, targetType TargetType, targetID string) (*PermissionItem, error)

	// ListGroupPermissions retorna los items de grupos para un site (solo los existentes).
	ListGroupPermissions(ctx context.Context, siteID string, groupIDs []string) ([]PermissionItem, error)

	SavePermission(ctx context.Context, p *PermissionItem) (ChangeMethod, error)

	// ─── Settings ───

	GetSettings(ctx context.Context, siteID, key string) (*SettingsEntry, error)
	SaveSettings(ctx context.Context, s *SettingsEntry) (ChangeMethod, error)
}
