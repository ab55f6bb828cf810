package access

import (
	"context"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// SetAuthorizationCode guarda (o rota) un code de un service provider ligado
// a la identidad autenticada: el user si hay, si no el client verificado.
func (s *Session) SetAuthorizationCode(ctx context.Context, req SetCodeRequest) (*repository.AuthorizationCode, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.authcode.set"),
		logger.Provider(req.ServiceProvider),
	)

	provider := repository.NormalizeProvider(req.ServiceProvider)
	if provider == "" || req.Code == "" {
		return nil, changeErr(ErrorKindArgument, "service provider and code are required")
	}

	// Paso 1: owner
	var (
		ownerType repository.OwnerType
		ownerID   string
	)
	switch {
	case s.user != nil && s.IsAuthenticated():
		ownerType, ownerID = repository.OwnerTypeUser, s.user.ID
	case s.client != nil && s.IsAuthenticated():
		ownerType, ownerID = repository.OwnerTypeServiceClient, s.client.ID
	default:
		return nil, changeErr(ErrorKindUnauthorized, "sign in is required")
	}

	accounts := s.svc.deps.Accounts

	// Paso 2: reusar el code existente del owner
	var code *repository.AuthorizationCode
	if !req.InsertNew {
		existing, err := accounts.GetAuthorizationCodeByOwner(ctx, provider, ownerType, ownerID)
		switch {
		case err == nil:
			code = existing
		case !repository.IsNotFound(err):
			log.Warn("code lookup failed", logger.Err(err))
			return nil, serviceErr("lookup authorization code failed", err)
		}
	}
	if code == nil {
		code = repository.NewAuthorizationCode(provider, ownerType, ownerID)
	}

	// Paso 3: digest + datos de display
	code.SetCode(req.Code)
	code.State = repository.StateNormal
	if s.user != nil && ownerType == repository.OwnerTypeUser {
		code.Name = s.user.DisplayName()
		code.Avatar = s.user.Avatar
	} else if s.client != nil {
		code.Name = s.client.Nickname
		if code.Name == "" {
			code.Name = s.client.Name
		}
	}

	// Paso 4: persistir
	m, err := accounts.SaveAuthorizationCode(ctx, code)
	if err != nil || !m.Succeeded() {
		log.Error("save authorization code failed", logger.Err(err))
		return nil, serviceErr("save authorization code failed", err)
	}
	log.Info("authorization code saved", logger.String("method", m.String()))
	return code, nil
}
