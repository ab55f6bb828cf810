package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	tokens "github.com/dropDatabas3/nuscien/internal/security/token"
)

// issueInput es la entrada común de la emisión/renovación de tokens.
type issueInput struct {
	grant GrantType

	// existing es el token encontrado por refresh token o access token.
	// nil = login nuevo.
	existing *repository.Token

	// user dueño del token; nil para tokens solo de client.
	user *repository.User

	// client resuelto desde el client id del request (opcional).
	client       *repository.AccessingClient
	clientSecret string

	// owner es el client dueño de un token sin user.
	owner *repository.AccessingClient

	scope       string
	withRefresh bool
}

// boundClientID es el client al que queda ligado un token nuevo.
func (in issueInput) boundClientID() string {
	if in.owner != nil {
		return in.owner.ID
	}
	if in.client != nil {
		return in.client.ID
	}
	return ""
}

// issue emite un token nuevo o reusa/renueva el existente y lo asigna a la
// sesión. Nunca retorna nil ni deja escapar un panic.
func (s *Session) issue(ctx context.Context, in issueInput) (info *TokenInfo) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.token.issue"),
		logger.GrantType(in.grant.String()),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("token issue panicked", logger.Any("panic", r))
			info = Failed(CodeServerError, fmt.Sprint(r))
		}
	}()

	now := s.svc.now()
	accounts := s.svc.deps.Accounts

	// Paso 1: ¿hace falta un token nuevo?
	renew := in.existing == nil || in.existing.IsClosedToExpiration(now)

	// Paso 2: el client del request tiene que ser el del token
	if in.client != nil {
		bound := in.boundClientID()
		if in.existing != nil {
			bound = in.existing.ClientID
		}
		if in.client.ID != bound {
			log.Debug("client mismatch", logger.ClientID(in.client.ID))
			return Failed(CodeInvalidClient, "the client is not for this token")
		}
	}

	// Paso 3: verificar el secreto antes de persistir nada
	var verified *repository.AccessingClient
	if in.client != nil && in.clientSecret != "" {
		c, err := accounts.GetClientByID(ctx, in.client.ID)
		if err != nil && !repository.IsNotFound(err) {
			log.Warn("client lookup failed", logger.Err(err))
			return storeFailure(err)
		}
		if c == nil || !c.IsNormal() || !c.ValidateCredentialKey(in.clientSecret) {
			log.Debug("client secret rejected", logger.ClientID(in.client.ID))
			return Failed(CodeInvalidClient, "secret credential key is invalid")
		}
		verified = c
	}

	// Paso 4: construir y persistir el token nuevo
	tk := in.existing
	if renew {
		tk = &repository.Token{
			Base:           repository.Base{State: repository.StateNormal},
			Name:           tokens.NewValue(),
			ExpirationTime: now.Add(s.svc.deps.TokenTTL),
		}
		if prev := in.existing; prev != nil {
			tk.GrantType = prev.GrantType
			tk.UserID = prev.UserID
			tk.ClientID = prev.ClientID
			tk.ScopeString = prev.ScopeString
			tk.RefreshToken = prev.RefreshToken
		} else {
			tk.GrantType = in.grant.String()
			tk.ClientID = in.boundClientID()
			tk.ScopeString = in.scope
			if in.user != nil {
				tk.UserID = in.user.ID
			}
			if in.withRefresh {
				tk.RefreshToken = tokens.NewValue()
			}
		}

		m, err := accounts.SaveToken(ctx, tk)
		if errors.Is(err, repository.ErrUnauthorized) {
			return Failed(CodeAccessDenied, err.Error())
		}
		if err != nil || !m.Succeeded() {
			log.Error("save token failed", logger.Err(err))
			return Failed(CodeServerError, "Generate token failed")
		}
		if in.existing != nil {
			s.svc.deps.Metrics.TokenRenewed()
			log.Debug("token renewed", logger.UserID(tk.UserID))
		}
	}

	// Paso 5: armar el resultado y asignarlo a la sesión
	info = &TokenInfo{
		AccessToken:  tk.Name,
		RefreshToken: tk.RefreshToken,
		TokenType:    TokenTypeBearer,
		ExpiredAfter: tk.ExpirationTime.Sub(now),
		Scope:        tk.ScopeString,
		UserID:       tk.UserID,
		ClientID:     tk.ClientID,
		ResourceID:   tk.UserID,
	}
	if info.ResourceID == "" {
		info.ResourceID = tk.ClientID
	}

	client := verified
	if client == nil {
		client = in.owner
	}
	s.assign(info, in.user, client)
	return info
}

// storeFailure traduce un error del store a un resultado fallido.
func storeFailure(err error) *TokenInfo {
	if errors.Is(err, repository.ErrUnauthorized) {
		return Failed(CodeAccessDenied, err.Error())
	}
	return Failed(CodeServerError, err.Error())
}
