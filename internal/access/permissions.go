package access

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// requireAdmin verifica que la sesión tenga el permiso de administración del site.
func (s *Session) requireAdmin(ctx context.Context, siteID string) error {
	if !s.IsAuthenticated() {
		return changeErr(ErrorKindUnauthorized, "sign in is required")
	}
	ok, err := s.has(ctx, siteID, true, s.svc.deps.PermissionAdminKey)
	if err != nil {
		return serviceErr("permission lookup failed", err)
	}
	if !ok {
		return changeErr(ErrorKindForbidden, "requires the permission admin capability on the site")
	}
	return nil
}

// has evalúa permisos de la identidad de la sesión (user o client verificado).
func (s *Session) has(ctx context.Context, siteID string, all bool, perms ...string) (bool, error) {
	if len(perms) == 0 || !s.IsAuthenticated() {
		return false, nil
	}
	if s.user != nil {
		set, err := s.svc.UserPermissions(ctx, siteID, s.user.ID)
		if err != nil {
			return false, err
		}
		if all {
			return set.HasAll(perms...), nil
		}
		return set.HasAny(perms...), nil
	}
	if s.client != nil {
		item, err := s.svc.deps.Accounts.GetPermission(ctx, siteID, repository.TargetClient, s.client.ID)
		if repository.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !item.IsNormal() {
			return false, nil
		}
		if all {
			return item.HasAll(perms...), nil
		}
		return item.HasAny(perms...), nil
	}
	return false, nil
}

// HasPermission indica si la sesión tiene todas las keys en el site. Un error
// del store cuenta como false.
func (s *Session) HasPermission(ctx context.Context, siteID string, perms ...string) bool {
	ok, err := s.has(ctx, siteID, true, perms...)
	if err != nil {
		logger.From(ctx).Warn("permission check failed", logger.SiteID(siteID), logger.Err(err))
	}
	return err == nil && ok
}

// HasAnyPermission indica si la sesión tiene al menos una de las keys.
func (s *Session) HasAnyPermission(ctx context.Context, siteID string, perms ...string) bool {
	ok, err := s.has(ctx, siteID, false, perms...)
	if err != nil {
		logger.From(ctx).Warn("permission check failed", logger.SiteID(siteID), logger.Err(err))
	}
	return err == nil && ok
}

// isSelf indica si el target es la identidad de la propia sesión.
func (s *Session) isSelf(targetType repository.TargetType, targetID string) bool {
	switch targetType {
	case repository.TargetUser:
		return s.user != nil && s.user.ID == targetID
	case repository.TargetClient:
		return s.client != nil && s.client.ID == targetID
	}
	return false
}

func validTarget(targetType repository.TargetType, targetID string) error {
	if targetType == repository.TargetUnknown {
		return changeErr(ErrorKindArgument, "target type is invalid")
	}
	if strings.TrimSpace(targetID) == "" {
		return changeErr(ErrorKindArgument, "target id is required")
	}
	return nil
}

// GetPermission retorna el item de permisos del target en el site. Leer los
// propios permisos no requiere admin. Si no existe retorna un item vacío sin
// persistir.
func (s *Session) GetPermission(ctx context.Context, siteID string, targetType repository.TargetType, targetID string) (*repository.PermissionItem, error) {
	if err := validTarget(targetType, targetID); err != nil {
		return nil, err
	}
	if !s.isSelf(targetType, targetID) {
		if err := s.requireAdmin(ctx, siteID); err != nil {
			return nil, err
		}
	} else if !s.IsAuthenticated() {
		return nil, changeErr(ErrorKindUnauthorized, "sign in is required")
	}

	item, err := s.svc.deps.Accounts.GetPermission(ctx, siteID, targetType, targetID)
	if repository.IsNotFound(err) {
		return repository.NewPermissionItem(siteID, targetType, targetID), nil
	}
	if err != nil {
		return nil, serviceErr("get permission failed", err)
	}
	return item, nil
}

// SavePermission reemplaza el set de permisos del target. Requiere el permiso
// de administración del site.
func (s *Session) SavePermission(ctx context.Context, siteID string, targetType repository.TargetType, targetID string, perms []string) (*repository.PermissionItem, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.permission.save"),
		logger.SiteID(siteID),
	)
	if err := validTarget(targetType, targetID); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, siteID); err != nil {
		return nil, err
	}

	accounts := s.svc.deps.Accounts
	item, err := accounts.GetPermission(ctx, siteID, targetType, targetID)
	if repository.IsNotFound(err) {
		item, err = repository.NewPermissionItem(siteID, targetType, targetID), nil
	}
	if err != nil {
		return nil, serviceErr("get permission failed", err)
	}
	item.Set(perms)
	item.State = repository.StateNormal

	m, err := accounts.SavePermission(ctx, item)
	if err != nil || !m.Succeeded() {
		log.Error("save permission failed", logger.Err(err))
		return nil, serviceErr("save permission failed", err)
	}
	log.Info("permission saved",
		logger.String("target_type", targetType.String()),
		logger.String("target_id", targetID),
		logger.Count(len(item.List())),
	)
	return item, nil
}

// GetSettings lee un documento de settings del site. Requiere admin.
func (s *Session) GetSettings(ctx context.Context, siteID, key string) (json.RawMessage, error) {
	if strings.TrimSpace(key) == "" {
		return nil, changeErr(ErrorKindArgument, "key is required")
	}
	if err := s.requireAdmin(ctx, siteID); err != nil {
		return nil, err
	}
	entry, err := s.svc.deps.Accounts.GetSettings(ctx, siteID, key)
	if repository.IsNotFound(err) || (err == nil && !entry.IsNormal()) {
		return nil, changeErr(ErrorKindNotFound, "settings not found")
	}
	if err != nil {
		return nil, serviceErr("get settings failed", err)
	}
	return json.RawMessage(entry.Value), nil
}

// SaveSettings guarda un documento JSON de settings del site. Requiere admin.
func (s *Session) SaveSettings(ctx context.Context, siteID, key string, value json.RawMessage) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.settings.save"),
		logger.SiteID(siteID),
	)
	if strings.TrimSpace(key) == "" {
		return changeErr(ErrorKindArgument, "key is required")
	}
	if !json.Valid(value) {
		return changeErr(ErrorKindArgument, "value must be valid JSON")
	}
	if err := s.requireAdmin(ctx, siteID); err != nil {
		return err
	}

	entry := &repository.SettingsEntry{
		Base:   repository.Base{State: repository.StateNormal},
		SiteID: siteID,
		Key:    key,
		Value:  string(value),
	}
	m, err := s.svc.deps.Accounts.SaveSettings(ctx, entry)
	if err != nil || !m.Succeeded() {
		log.Error("save settings failed", logger.Err(err))
		return serviceErr("save settings failed", err)
	}
	return nil
}
