package gormstore

import (
	"strings"
	"time"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// BaseRow son las columnas comunes. Tiene que ser exportado: gorm ignora los
// embebidos no exportados. Los timestamps se mapean a mano para que gorm no los
// pise con su auto-time.
type BaseRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	State     int       `gorm:"not null;default:2"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func toBaseRow(b repository.Base) BaseRow {
	return BaseRow{ID: b.ID, State: int(b.State), CreatedAt: b.CreationTime.UTC(), UpdatedAt: b.LastModificationTime.UTC()}
}

func (b BaseRow) toBase() repository.Base {
	return repository.Base{
		ID:                   b.ID,
		State:                repository.EntityState(b.State),
		CreationTime:         b.CreatedAt,
		LastModificationTime: b.UpdatedAt,
	}
}

type userRow struct {
	BaseRow
	Name         string  `gorm:"size:128;not null"`
	NameKey      string  `gorm:"size:128;uniqueIndex;not null"` // lower(name)
	PasswordHash string  `gorm:"size:255"`
	Nickname     string  `gorm:"size:128"`
	Avatar       string  `gorm:"size:512"`
	Email        *string `gorm:"size:255"`
	Phone        *string `gorm:"size:64"`
	Market       string  `gorm:"size:128"`
}

func (userRow) TableName() string { return "app_user" }

func fromUser(u *repository.User) userRow {
	return userRow{
		BaseRow:      toBaseRow(u.Base),
		Name:         u.Name,
		NameKey:      strings.ToLower(u.Name),
		PasswordHash: u.PasswordHash,
		Nickname:     u.Nickname,
		Avatar:       u.Avatar,
		Email:        optional(u.Email),
		Phone:        optional(u.Phone),
		Market:       u.Market,
	}
}

func (r userRow) toUser() *repository.User {
	return &repository.User{
		Base:         r.toBase(),
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Nickname:     r.Nickname,
		Avatar:       r.Avatar,
		Email:        deref(r.Email),
		Phone:        deref(r.Phone),
		Market:       r.Market,
	}
}

type groupRow struct {
	BaseRow
	Name        string `gorm:"size:128;not null"`
	Nickname    string `gorm:"size:128"`
	Avatar      string `gorm:"size:512"`
	Description string `gorm:"type:text"`
	OwnerSiteID string `gorm:"size:128;index"`
	Visibility  int    `gorm:"not null;default:0"`
}

func (groupRow) TableName() string { return "user_group" }

type relRow struct {
	BaseRow
	GroupID string `gorm:"size:36;not null;uniqueIndex:uq_rel_group_user"`
	UserID  string `gorm:"size:36;not null;uniqueIndex:uq_rel_group_user;index"`
	Role    int    `gorm:"not null;default:1"`
}

func (relRow) TableName() string { return "user_group_rel" }

func (r relRow) toRelationship() repository.UserGroupRelationship {
	return repository.UserGroupRelationship{
		Base:    r.toBase(),
		GroupID: r.GroupID,
		UserID:  r.UserID,
		Role:    repository.GroupRole(r.Role),
	}
}

type clientRow struct {
	BaseRow
	Name              string `gorm:"size:128;uniqueIndex;not null"`
	Nickname          string `gorm:"size:128"`
	CredentialKeyHash string `gorm:"size:128"`
}

func (clientRow) TableName() string { return "accessing_client" }

func (r clientRow) toClient() *repository.AccessingClient {
	return &repository.AccessingClient{
		Base:              r.toBase(),
		Name:              r.Name,
		Nickname:          r.Nickname,
		CredentialKeyHash: r.CredentialKeyHash,
	}
}

type tokenRow struct {
	BaseRow
	Name         string    `gorm:"size:128;uniqueIndex;not null"`
	RefreshToken *string   `gorm:"size:128;index"`
	UserID       *string   `gorm:"size:36;index"`
	ClientID     *string   `gorm:"size:36;index"`
	GrantType    string    `gorm:"size:32"`
	Scope        string    `gorm:"size:1024"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

func (tokenRow) TableName() string { return "access_token" }

func fromToken(t *repository.Token) tokenRow {
	return tokenRow{
		BaseRow:      toBaseRow(t.Base),
		Name:         t.Name,
		RefreshToken: optional(t.RefreshToken),
		UserID:       optional(t.UserID),
		ClientID:     optional(t.ClientID),
		GrantType:    t.GrantType,
		Scope:        t.ScopeString,
		ExpiresAt:    t.ExpirationTime.UTC(),
	}
}

func (r tokenRow) toToken() *repository.Token {
	return &repository.Token{
		Base:           r.toBase(),
		Name:           r.Name,
		RefreshToken:   deref(r.RefreshToken),
		UserID:         deref(r.UserID),
		ClientID:       deref(r.ClientID),
		GrantType:      r.GrantType,
		ScopeString:    r.Scope,
		ExpirationTime: r.ExpiresAt,
	}
}

type codeRow struct {
	BaseRow
	ServiceProvider string `gorm:"size:64;not null;index:ix_code_hash;index:ix_code_owner"`
	CodeHash        string `gorm:"size:128;not null;index:ix_code_hash"`
	OwnerType       int    `gorm:"not null;index:ix_code_owner"`
	OwnerID         string `gorm:"size:36;not null;index:ix_code_owner"`
	Name            string `gorm:"size:128"`
	Avatar          string `gorm:"size:512"`
	Description     string `gorm:"type:text"`
}

func (codeRow) TableName() string { return "authorization_code" }

func (r codeRow) toCode() *repository.AuthorizationCode {
	return &repository.AuthorizationCode{
		Base:            r.toBase(),
		ServiceProvider: r.ServiceProvider,
		CodeHash:        r.CodeHash,
		OwnerType:       repository.OwnerType(r.OwnerType),
		OwnerID:         r.OwnerID,
		Name:            r.Name,
		Avatar:          r.Avatar,
		Description:     r.Description,
	}
}

type permRow struct {
	BaseRow
	SiteID      string `gorm:"size:128;not null;default:'';uniqueIndex:uq_perm_target"`
	TargetType  int    `gorm:"not null;uniqueIndex:uq_perm_target"`
	TargetID    string `gorm:"size:36;not null;uniqueIndex:uq_perm_target"`
	Permissions string `gorm:"type:text"`
}

func (permRow) TableName() string { return "permission_item" }

func (r permRow) toPermission() repository.PermissionItem {
	return repository.PermissionItem{
		Base:        r.toBase(),
		SiteID:      r.SiteID,
		TargetType:  repository.TargetType(r.TargetType),
		TargetID:    r.TargetID,
		Permissions: r.Permissions,
	}
}

type settingsRow struct {
	BaseRow
	SiteID string `gorm:"size:128;not null;default:'';uniqueIndex:uq_settings_key"`
	Key    string `gorm:"size:128;not null;uniqueIndex:uq_settings_key"`
	Value  string `gorm:"type:text"`
}

func (settingsRow) TableName() string { return "site_settings" }

// allModels es el orden de AutoMigrate.
var allModels = []any{
	&userRow{},
	&groupRow{},
	&relRow{},
	&clientRow{},
	&tokenRow{},
	&codeRow{},
	&permRow{},
	&settingsRow{},
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
