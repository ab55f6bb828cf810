package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// Repository implementa repository.AccountRepository sobre *gorm.DB.
type Repository struct {
	db *gorm.DB

	// Now fija el reloj de los timestamps. Default time.Now.
	Now func() time.Time
}

// New crea el repositorio.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db, Now: time.Now}
}

var _ repository.AccountRepository = (*Repository)(nil)

// AutoMigrate crea o actualiza las tablas.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (r *Repository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// upsertByID inserta la fila o actualiza todas las columnas si el ID ya existe.
func upsertByID(tx *gorm.DB, row any) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

func changeOf(isNew bool) repository.ChangeMethod {
	if isNew {
		return repository.ChangeAdd
	}
	return repository.ChangeUpdate
}

// ─── Users ───

func (r *Repository) GetUserByID(ctx context.Context, id string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row userRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return row.toUser(), nil
}

func (r *Repository) GetUserByLogname(ctx context.Context, name string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, repository.ErrNotFound
	}
	var row userRow
	if err := r.db.WithContext(ctx).Where("name_key = ?", strings.ToLower(name)).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return row.toUser(), nil
}

func (r *Repository) SaveUser(ctx context.Context, u *repository.User) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := u.Touch(r.now())
	row := fromUser(u)
	if err := upsertByID(r.db.WithContext(ctx), &row); err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Groups ───

func (r *Repository) GetGroupByID(ctx context.Context, id string) (*repository.UserGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row groupRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return &repository.UserGroup{
		Base:        row.toBase(),
		Name:        row.Name,
		Nickname:    row.Nickname,
		Avatar:      row.Avatar,
		Description: row.Description,
		OwnerSiteID: row.OwnerSiteID,
		Visibility:  repository.GroupVisibility(row.Visibility),
	}, nil
}

func (r *Repository) SaveGroup(ctx context.Context, g *repository.UserGroup) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if g == nil || strings.TrimSpace(g.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := g.Touch(r.now())
	row := groupRow{
		BaseRow:     toBaseRow(g.Base),
		Name:        g.Name,
		Nickname:    g.Nickname,
		Avatar:      g.Avatar,
		Description: g.Description,
		OwnerSiteID: g.OwnerSiteID,
		Visibility:  int(g.Visibility),
	}
	if err := upsertByID(r.db.WithContext(ctx), &row); err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

func (r *Repository) SaveRelationship(ctx context.Context, rel *repository.UserGroupRelationship) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if rel == nil || rel.GroupID == "" || rel.UserID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	var method repository.ChangeMethod
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rel.ID == "" {
			var existing relRow
			err := tx.Where("group_id = ? AND user_id = ?", rel.GroupID, rel.UserID).First(&existing).Error
			if err == nil {
				rel.ID, rel.CreationTime = existing.ID, existing.CreatedAt
			} else if mapErr(err) != repository.ErrNotFound {
				return err
			}
		}
		isNew := rel.Touch(r.now())
		row := relRow{BaseRow: toBaseRow(rel.Base), GroupID: rel.GroupID, UserID: rel.UserID, Role: int(rel.Role)}
		if err := upsertByID(tx, &row); err != nil {
			return err
		}
		method = changeOf(isNew)
		return nil
	})
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return method, nil
}

func (r *Repository) ListRelationshipsByUser(ctx context.Context, userID string) ([]repository.UserGroupRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []relRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, int(repository.StateNormal)).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]repository.UserGroupRelationship, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRelationship())
	}
	return out, nil
}

// ─── Clients ───

func (r *Repository) GetClientByID(ctx context.Context, id string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row clientRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return row.toClient(), nil
}

func (r *Repository) GetClientByName(ctx context.Context, name string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, repository.ErrNotFound
	}
	var row clientRow
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return row.toClient(), nil
}

func (r *Repository) SaveClient(ctx context.Context, c *repository.AccessingClient) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := c.Touch(r.now())
	row := clientRow{BaseRow: toBaseRow(c.Base), Name: c.Name, Nickname: c.Nickname, CredentialKeyHash: c.CredentialKeyHash}
	if err := upsertByID(r.db.WithContext(ctx), &row); err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Tokens ───

func (r *Repository) GetTokenByName(ctx context.Context, accessToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, repository.ErrNotFound
	}
	var row tokenRow
	if err := r.db.WithContext(ctx).Where("name = ?", accessToken).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return row.toToken(), nil
}

func (r *Repository) GetTokenByRefreshToken(ctx context.Context, refreshToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, repository.ErrNotFound
	}
	var row tokenRow
	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Order("expires_at DESC").
		First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return row.toToken(), nil
}

func (r *Repository) SaveToken(ctx context.Context, t *repository.Token) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if t == nil || t.Name == "" || (t.UserID == "" && t.ClientID == "") {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := t.Touch(r.now())
	row := fromToken(t)
	if err := upsertByID(r.db.WithContext(ctx), &row); err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

func (r *Repository) DeleteAccessToken(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("name = ?", accessToken).Delete(&tokenRow{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpiredTokens(ctx context.Context, userID, clientID string, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q := r.db.WithContext(ctx)
	switch {
	case userID != "":
		q = q.Where("user_id = ?", userID)
	case clientID != "":
		q = q.Where("user_id IS NULL AND client_id = ?", clientID)
	default:
		return 0, repository.ErrInvalidInput
	}
	res := q.Where("expires_at <= ?", now.UTC()).Delete(&tokenRow{})
	if res.Error != nil {
		return 0, mapErr(res.Error)
	}
	return int(res.RowsAffected), nil
}

// ─── Authorization codes ───

func (r *Repository) GetAuthorizationCodeByCode(ctx context.Context, provider, codeHash string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row codeRow
	err := r.db.WithContext(ctx).
		Where("service_provider = ? AND code_hash = ? AND state = ?",
			repository.NormalizeProvider(provider), codeHash, int(repository.StateNormal)).
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return row.toCode(), nil
}

func (r *Repository) GetAuthorizationCodeByOwner(ctx context.Context, provider string, ownerType repository.OwnerType, ownerID string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row codeRow
	err := r.db.WithContext(ctx).
		Where("service_provider = ? AND owner_type = ? AND owner_id = ?",
			repository.NormalizeProvider(provider), int(ownerType), ownerID).
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return row.toCode(), nil
}

func (r *Repository) SaveAuthorizationCode(ctx context.Context, c *repository.AuthorizationCode) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if c == nil || c.ServiceProvider == "" || c.CodeHash == "" || c.OwnerID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	isNew := c.Touch(r.now())
	row := codeRow{
		BaseRow:         toBaseRow(c.Base),
		ServiceProvider: repository.NormalizeProvider(c.ServiceProvider),
		CodeHash:        c.CodeHash,
		OwnerType:       int(c.OwnerType),
		OwnerID:         c.OwnerID,
		Name:            c.Name,
		Avatar:          c.Avatar,
		Description:     c.Description,
	}
	if err := upsertByID(r.db.WithContext(ctx), &row); err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return changeOf(isNew), nil
}

// ─── Permissions ───

func (r *Repository) GetPermission(ctx context.Context, siteID string, targetType repository.TargetType, targetID string) (*repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row permRow
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND target_type = ? AND target_id = ?", siteID, int(targetType), targetID).
		First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	p := row.toPermission()
	return &p, nil
}

func (r *Repository) ListGroupPermissions(ctx context.Context, siteID string, groupIDs []string) ([]repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var rows []permRow
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND target_type = ? AND target_id IN ?", siteID, int(repository.TargetGroup), groupIDs).
		Find(&rows).Error
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]repository.PermissionItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toPermission())
	}
	return out, nil
}

func (r *Repository) SavePermission(ctx context.Context, p *repository.PermissionItem) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if p == nil || p.TargetID == "" || p.TargetType == repository.TargetUnknown {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	var method repository.ChangeMethod
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.ID == "" {
			var existing permRow
			err := tx.Where("site_id = ? AND target_type = ? AND target_id = ?", p.SiteID, int(p.TargetType), p.TargetID).
				First(&existing).Error
			if err == nil {
				p.ID, p.CreationTime = existing.ID, existing.CreatedAt
			} else if mapErr(err) != repository.ErrNotFound {
				return err
			}
		}
		isNew := p.Touch(r.now())
		row := permRow{
			BaseRow:     toBaseRow(p.Base),
			SiteID:      p.SiteID,
			TargetType:  int(p.TargetType),
			TargetID:    p.TargetID,
			Permissions: p.Permissions,
		}
		if err := upsertByID(tx, &row); err != nil {
			return err
		}
		method = changeOf(isNew)
		return nil
	})
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return method, nil
}

// ─── Settings ───

func (r *Repository) GetSettings(ctx context.Context, siteID, key string) (*repository.SettingsEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row settingsRow
	if err := r.db.WithContext(ctx).Where("site_id = ? AND key = ?", siteID, key).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	return &repository.SettingsEntry{Base: row.toBase(), SiteID: row.SiteID, Key: row.Key, Value: row.Value}, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s *repository.SettingsEntry) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeInvalid, err
	}
	if s == nil || s.Key == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	var method repository.ChangeMethod
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.ID == "" {
			var existing settingsRow
			err := tx.Where("site_id = ? AND key = ?", s.SiteID, s.Key).First(&existing).Error
			if err == nil {
				s.ID, s.CreationTime = existing.ID, existing.CreatedAt
			} else if mapErr(err) != repository.ErrNotFound {
				return err
			}
		}
		isNew := s.Touch(r.now())
		row := settingsRow{BaseRow: toBaseRow(s.Base), SiteID: s.SiteID, Key: s.Key, Value: s.Value}
		if err := upsertByID(tx, &row); err != nil {
			return err
		}
		method = changeOf(isNew)
		return nil
	})
	if err != nil {
		return repository.ChangeInvalid, mapErr(err)
	}
	return method, nil
}
