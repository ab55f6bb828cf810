// Package access implementa el resource access client: sign-in por grant
// type, ciclo de vida de tokens, authorization codes y resolución de permisos.
//
// Service es compartido por todo el proceso y se construye una vez con sus
// dependencias. Cada request crea su propia Session con Service.NewSession.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	"github.com/dropDatabas3/nuscien/internal/security/password"
)

// Defaults
const (
	DefaultTokenTTL           = 2 * time.Hour
	DefaultPermissionAdminKey = "site-admin"
)

// Recorder recibe los eventos de métricas del sign-in. nil = no-op.
type Recorder interface {
	SignIn(grant GrantType, errorCode string)
	TokenRenewed()
	ExpiredTokensDeleted(n int)
}

type noopRecorder struct{}

func (noopRecorder) SignIn(GrantType, string) {}
func (noopRecorder) TokenRenewed()            {}
func (noopRecorder) ExpiredTokensDeleted(int) {}

// Deps contiene las dependencias del Service.
type Deps struct {
	Accounts repository.AccountRepository

	LoginProviders *Registry[LoginProvider]        // nil = ninguno
	CodeVerifiers  *Registry[CodeVerifierProvider] // nil = ninguno

	Now      func() time.Time // nil = time.Now
	TokenTTL time.Duration    // 0 = DefaultTokenTTL

	// PermissionAdminKey es el permiso que habilita administrar permisos y
	// settings de un site.
	PermissionAdminKey string

	PasswordPolicy password.Policy
	Blacklist      *password.Blacklist // nil = sin blacklist

	Metrics Recorder
}

// Service es el resource access client compartido.
type Service struct {
	deps Deps
}

// NewService valida deps y completa defaults.
func NewService(deps Deps) (*Service, error) {
	if deps.Accounts == nil {
		return nil, fmt.Errorf("access: accounts repository is required")
	}
	if deps.LoginProviders == nil {
		deps.LoginProviders = NewRegistry[LoginProvider]()
	}
	if deps.CodeVerifiers == nil {
		deps.CodeVerifiers = NewRegistry[CodeVerifierProvider]()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = DefaultTokenTTL
	}
	if strings.TrimSpace(deps.PermissionAdminKey) == "" {
		deps.PermissionAdminKey = DefaultPermissionAdminKey
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}
	return &Service{deps: deps}, nil
}

// NewSession crea una sesión vacía (no autenticada).
func (s *Service) NewSession() *Session {
	return &Session{svc: s}
}

// Accounts expone el repositorio (CLI, seeds).
func (s *Service) Accounts() repository.AccountRepository { return s.deps.Accounts }

// LoginProviders expone el registry para registrar providers después de construir.
func (s *Service) LoginProviders() *Registry[LoginProvider] { return s.deps.LoginProviders }

// CodeVerifiers expone el registry de verificadores de authorization codes.
func (s *Service) CodeVerifiers() *Registry[CodeVerifierProvider] { return s.deps.CodeVerifiers }

// PermissionAdminKey retorna el permiso de administración configurado.
func (s *Service) PermissionAdminKey() string { return s.deps.PermissionAdminKey }

func (s *Service) now() time.Time { return s.deps.Now() }

// UserPermissions junta los permisos directos del user y los de todos sus
// grupos activos en el site.
func (s *Service) UserPermissions(ctx context.Context, siteID, userID string) (*repository.UserSitePermissionSet, error) {
	set := &repository.UserSitePermissionSet{SiteID: siteID, UserID: userID}
	if userID == "" {
		return set, nil
	}

	item, err := s.deps.Accounts.GetPermission(ctx, siteID, repository.TargetUser, userID)
	switch {
	case err == nil:
		set.User = item
	case !repository.IsNotFound(err):
		return nil, err
	}

	rels, err := s.deps.Accounts.ListRelationshipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return set, nil
	}
	groupIDs := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel.IsNormal() {
			groupIDs = append(groupIDs, rel.GroupID)
		}
	}
	items, err := s.deps.Accounts.ListGroupPermissions(ctx, siteID, groupIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		set.Groups = append(set.Groups, &items[i])
	}
	return set, nil
}

// HasUserPermission retorna true si el user (directo o por grupo) tiene todas
// las keys en el site.
func (s *Service) HasUserPermission(ctx context.Context, userID, siteID string, perms ...string) (bool, error) {
	if userID == "" || len(perms) == 0 {
		return false, nil
	}
	set, err := s.UserPermissions(ctx, siteID, userID)
	if err != nil {
		return false, err
	}
	return set.HasAll(perms...), nil
}

// HasClientPermission retorna true si el client tiene todas las keys en el site.
func (s *Service) HasClientPermission(ctx context.Context, clientID, siteID string, perms ...string) (bool, error) {
	if clientID == "" || len(perms) == 0 {
		return false, nil
	}
	item, err := s.deps.Accounts.GetPermission(ctx, siteID, repository.TargetClient, clientID)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return item.IsNormal() && item.HasAll(perms...), nil
}

// CleanupExpiredTokens borra los tokens expirados de un user o un client.
func (s *Service) CleanupExpiredTokens(ctx context.Context, userID, clientID string) (int, error) {
	n, err := s.deps.Accounts.DeleteExpiredTokens(ctx, userID, clientID, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.deps.Metrics.ExpiredTokensDeleted(n)
		logger.From(ctx).Debug("expired tokens deleted",
			logger.Layer("service"),
			logger.Op("access.tokens.cleanup"),
			logger.UserID(userID),
			logger.ClientID(clientID),
			logger.Count(n),
		)
	}
	return n, nil
}
