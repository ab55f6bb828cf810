package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// Repository implementa repository.AccountRepository sobre pgx.
type Repository struct {
	q querier

	// Now fija el reloj de los timestamps. Default time.Now.
	Now func() time.Time
}

// NewRepository crea el repositorio sobre un pool (o una tx).
func NewRepository(q querier) *Repository {
	return &Repository{q: q, Now: time.Now}
}

var _ repository.AccountRepository = (*Repository)(nil)

func (r *Repository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

func changeOf(isNew bool) repository.ChangeMethod {
	if isNew {
		return repository.ChangeAdd
	}
	return repository.ChangeUpdate
}

// ─── Users ───

const userColumns = `id, name, password_hash, nickname, avatar, email, phone, market, state, created_at, updated_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u            repository.User
		email, phone *string
	)
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Nickname, &u.Avatar, &email, &phone,
		&u.Market, &u.State, &u.CreationTime, &u.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Email, u.Phone = strOrEmpty(email), strOrEmpty(phone)
	return &u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
}

func (r *Repository) GetUserByLogname(ctx context.Context, name string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE lower(name) = lower($1)`, name))
}

func (r *Repository) SaveUser(ctx context.Context, u *repository.User) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := u.Touch(r.now())
	const query = `
		INSERT INTO app_user (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, password_hash = $3, nickname = $4, avatar = $5,
			email = $6, phone = $7, market = $8, state = $9, updated_at = $11
	`
	_, err := r.q.Exec(ctx, query, u.ID, u.Name, u.PasswordHash, u.Nickname, u.Avatar,
		nullIfEmpty(u.Email), nullIfEmpty(u.Phone), u.Market, u.State, u.CreationTime, u.LastModificationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Groups ───

func (r *Repository) GetGroupByID(ctx context.Context, id string) (*repository.UserGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `
		SELECT id, name, nickname, avatar, description, owner_site_id, visibility, state, created_at, updated_at
		FROM user_group WHERE id = $1
	`
	var g repository.UserGroup
	err := r.q.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.Nickname, &g.Avatar, &g.Description,
		&g.OwnerSiteID, &g.Visibility, &g.State, &g.CreationTime, &g.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

func (r *Repository) SaveGroup(ctx context.Context, g *repository.UserGroup) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if g == nil || strings.TrimSpace(g.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := g.Touch(r.now())
	const query = `
		INSERT INTO user_group (id, name, nickname, avatar, description, owner_site_id, visibility, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, nickname = $3, avatar = $4, description = $5,
			owner_site_id = $6, visibility = $7, state = $8, updated_at = $10
	`
	_, err := r.q.Exec(ctx, query, g.ID, g.Name, g.Nickname, g.Avatar, g.Description,
		g.OwnerSiteID, g.Visibility, g.State, g.CreationTime, g.LastModificationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

func (r *Repository) SaveRelationship(ctx context.Context, rel *repository.UserGroupRelationship) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if rel == nil || rel.GroupID == "" || rel.UserID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := rel.Touch(r.now())
	// Una sola membresía por (group, user); RETURNING trae el ID ganador
	const query = `
		INSERT INTO user_group_rel (id, group_id, user_id, role, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (group_id, user_id) DO UPDATE SET role = $4, state = $5, updated_at = $7
		RETURNING id, created_at
	`
	var id string
	err := r.q.QueryRow(ctx, query, rel.ID, rel.GroupID, rel.UserID, rel.Role, rel.State,
		rel.CreationTime, rel.LastModificationTime).Scan(&id, &rel.CreationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	if id != rel.ID {
		rel.ID, isNew = id, false
	}
	return changeOf(isNew), nil
}

func (r *Repository) ListRelationshipsByUser(ctx context.Context, userID string) ([]repository.UserGroupRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `
		SELECT id, group_id, user_id, role, state, created_at, updated_at
		FROM user_group_rel WHERE user_id = $1 AND state = $2
		ORDER BY created_at
	`
	rows, err := r.q.Query(ctx, query, userID, repository.StateNormal)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.UserGroupRelationship
	for rows.Next() {
		var rel repository.UserGroupRelationship
		if err := rows.Scan(&rel.ID, &rel.GroupID, &rel.UserID, &rel.Role, &rel.State,
			&rel.CreationTime, &rel.LastModificationTime); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ─── Clients ───

const clientColumns = `id, name, nickname, credential_key_hash, state, created_at, updated_at`

func scanClient(row pgx.Row) (*repository.AccessingClient, error) {
	var c repository.AccessingClient
	err := row.Scan(&c.ID, &c.Name, &c.Nickname, &c.CredentialKeyHash, &c.State, &c.CreationTime, &c.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *Repository) GetClientByID(ctx context.Context, id string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scanClient(r.q.QueryRow(ctx, `SELECT `+clientColumns+` FROM accessing_client WHERE id = $1`, id))
}

func (r *Repository) GetClientByName(ctx context.Context, name string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, repository.ErrNotFound
	}
	return scanClient(r.q.QueryRow(ctx, `SELECT `+clientColumns+` FROM accessing_client WHERE name = $1`, name))
}

func (r *Repository) SaveClient(ctx context.Context, c *repository.AccessingClient) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := c.Touch(r.now())
	const query = `
		INSERT INTO accessing_client (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, nickname = $3, credential_key_hash = $4, state = $5, updated_at = $7
	`
	_, err := r.q.Exec(ctx, query, c.ID, c.Name, c.Nickname, c.CredentialKeyHash, c.State,
		c.CreationTime, c.LastModificationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Tokens ───

const tokenColumns = `id, name, refresh_token, user_id, client_id, grant_type, scope, expires_at, state, created_at, updated_at`

func scanToken(row pgx.Row) (*repository.Token, error) {
	var (
		t                         repository.Token
		refresh, userID, clientID *string
	)
	err := row.Scan(&t.ID, &t.Name, &refresh, &userID, &clientID, &t.GrantType, &t.ScopeString,
		&t.ExpirationTime, &t.State, &t.CreationTime, &t.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	t.RefreshToken, t.UserID, t.ClientID = strOrEmpty(refresh), strOrEmpty(userID), strOrEmpty(clientID)
	return &t, nil
}

func (r *Repository) GetTokenByName(ctx context.Context, accessToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, repository.ErrNotFound
	}
	return scanToken(r.q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM access_token WHERE name = $1`, accessToken))
}

func (r *Repository) GetTokenByRefreshToken(ctx context.Context, refreshToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, repository.ErrNotFound
	}
	const query = `SELECT ` + tokenColumns + ` FROM access_token WHERE refresh_token = $1 ORDER BY expires_at DESC LIMIT 1`
	return scanToken(r.q.QueryRow(ctx, query, refreshToken))
}

func (r *Repository) SaveToken(ctx context.Context, t *repository.Token) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if t == nil || t.Name == "" || (t.UserID == "" && t.ClientID == "") {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := t.Touch(r.now())
	const query = `
		INSERT INTO access_token (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, refresh_token = $3, user_id = $4, client_id = $5, grant_type = $6,
			scope = $7, expires_at = $8, state = $9, updated_at = $11
	`
	_, err := r.q.Exec(ctx, query, t.ID, t.Name, nullIfEmpty(t.RefreshToken), nullIfEmpty(t.UserID),
		nullIfEmpty(t.ClientID), t.GrantType, t.ScopeString, t.ExpirationTime.UTC(), t.State,
		t.CreationTime, t.LastModificationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

func (r *Repository) DeleteAccessToken(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM access_token WHERE name = $1`, accessToken)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpiredTokens(ctx context.Context, userID, clientID string, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var (
		query string
		arg   string
	)
	switch {
	case userID != "":
		query, arg = `DELETE FROM access_token WHERE user_id = $1 AND expires_at <= $2`, userID
	case clientID != "":
		query, arg = `DELETE FROM access_token WHERE user_id IS NULL AND client_id = $1 AND expires_at <= $2`, clientID
	default:
		return 0, repository.ErrInvalidInput
	}
	tag, err := r.q.Exec(ctx, query, arg, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

// ─── Authorization codes ───

const codeColumns = `id, service_provider, code_hash, owner_type, owner_id, name, avatar, description, state, created_at, updated_at`

func scanCode(row pgx.Row) (*repository.AuthorizationCode, error) {
	var c repository.AuthorizationCode
	err := row.Scan(&c.ID, &c.ServiceProvider, &c.CodeHash, &c.OwnerType, &c.OwnerID, &c.Name, &c.Avatar,
		&c.Description, &c.State, &c.CreationTime, &c.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *Repository) GetAuthorizationCodeByCode(ctx context.Context, provider, codeHash string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `
		SELECT ` + codeColumns + ` FROM authorization_code
		WHERE service_provider = $1 AND code_hash = $2 AND state = $3
		ORDER BY updated_at DESC LIMIT 1
	`
	return scanCode(r.q.QueryRow(ctx, query, repository.NormalizeProvider(provider), codeHash, repository.StateNormal))
}

func (r *Repository) GetAuthorizationCodeByOwner(ctx context.Context, provider string, ownerType repository.OwnerType, ownerID string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `
		SELECT ` + codeColumns + ` FROM authorization_code
		WHERE service_provider = $1 AND owner_type = $2 AND owner_id = $3
		ORDER BY updated_at DESC LIMIT 1
	`
	return scanCode(r.q.QueryRow(ctx, query, repository.NormalizeProvider(provider), ownerType, ownerID))
}

func (r *Repository) SaveAuthorizationCode(ctx context.Context, c *repository.AuthorizationCode) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if c == nil || c.ServiceProvider == "" || c.CodeHash == "" || c.OwnerID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := c.Touch(r.now())
	const query = `
		INSERT INTO authorization_code (` + codeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			service_provider = $2, code_hash = $3, owner_type = $4, owner_id = $5,
			name = $6, avatar = $7, description = $8, state = $9, updated_at = $11
	`
	_, err := r.q.Exec(ctx, query, c.ID, repository.NormalizeProvider(c.ServiceProvider), c.CodeHash, c.OwnerType,
		c.OwnerID, c.Name, c.Avatar, c.Description, c.State, c.CreationTime, c.LastModificationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Permissions ───

const permColumns = `id, site_id, target_type, target_id, permissions, state, created_at, updated_at`

func scanPerm(row pgx.Row) (*repository.PermissionItem, error) {
	var p repository.PermissionItem
	err := row.Scan(&p.ID, &p.SiteID, &p.TargetType, &p.TargetID, &p.Permissions, &p.State,
		&p.CreationTime, &p.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *Repository) GetPermission(ctx context.Context, siteID string, targetType repository.TargetType, targetID string) (*repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `SELECT ` + permColumns + ` FROM permission_item WHERE site_id = $1 AND target_type = $2 AND target_id = $3`
	return scanPerm(r.q.QueryRow(ctx, query, siteID, targetType, targetID))
}

func (r *Repository) ListGroupPermissions(ctx context.Context, siteID string, groupIDs []string) ([]repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + permColumns + ` FROM permission_item WHERE site_id = $1 AND target_type = $2 AND target_id = ANY($3)`
	rows, err := r.q.Query(ctx, query, siteID, repository.TargetGroup, groupIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.PermissionItem
	for rows.Next() {
		p, err := scanPerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) SavePermission(ctx context.Context, p *repository.PermissionItem) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if p == nil || p.TargetID == "" || p.TargetType == repository.TargetUnknown {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := p.Touch(r.now())
	const query = `
		INSERT INTO permission_item (` + permColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (site_id, target_type, target_id) DO UPDATE SET
			permissions = $5, state = $6, updated_at = $8
		RETURNING id, created_at
	`
	var id string
	err := r.q.QueryRow(ctx, query, p.ID, p.SiteID, p.TargetType, p.TargetID, p.Permissions, p.State,
		p.CreationTime, p.LastModificationTime).Scan(&id, &p.CreationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	if id != p.ID {
		p.ID, isNew = id, false
	}
	return changeOf(isNew), nil
}

// ─── Settings ───

func (r *Repository) GetSettings(ctx context.Context, siteID, key string) (*repository.SettingsEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	const query = `
		SELECT id, site_id, key, value, state, created_at, updated_at
		FROM site_settings WHERE site_id = $1 AND key = $2
	`
	var s repository.SettingsEntry
	err := r.q.QueryRow(ctx, query, siteID, key).Scan(&s.ID, &s.SiteID, &s.Key, &s.Value, &s.State,
		&s.CreationTime, &s.LastModificationTime)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s *repository.SettingsEntry) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if s == nil || s.Key == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := s.Touch(r.now())
	const query = `
		INSERT INTO site_settings (id, site_id, key, value, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (site_id, key) DO UPDATE SET value = $4, state = $5, updated_at = $7
		RETURNING id, created_at
	`
	var id string
	err := r.q.QueryRow(ctx, query, s.ID, s.SiteID, s.Key, s.Value, s.State,
		s.CreationTime, s.LastModificationTime).Scan(&id, &s.CreationTime)
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	if id != s.ID {
		s.ID, isNew = id, false
	}
	return changeOf(isNew), nil
}
