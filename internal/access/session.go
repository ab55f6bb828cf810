package access

import (
	"context"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// Session es el estado de autenticación de un request: token actual, user y
// client verificado. No es segura para uso concurrente.
type Session struct {
	svc *Service

	token  *TokenInfo
	user   *repository.User
	client *repository.AccessingClient
}

// Service retorna el servicio dueño de la sesión.
func (s *Session) Service() *Service { return s.svc }

// Token retorna el token actual o nil.
func (s *Session) Token() *TokenInfo {
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// User retorna el user autenticado o nil (token solo de client).
func (s *Session) User() *repository.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Client retorna una copia del client verificado o nil. Modificar la copia no
// afecta a la sesión.
func (s *Session) Client() *repository.AccessingClient {
	if s.client == nil {
		return nil
	}
	c := *s.client
	return &c
}

// IsAuthenticated indica si la sesión tiene un token vigente.
func (s *Session) IsAuthenticated() bool {
	return s.token.Succeeded()
}

// UserID retorna el id del user autenticado o "".
func (s *Session) UserID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// ClientID retorna el id del client verificado o "".
func (s *Session) ClientID() string {
	if s.client == nil {
		return ""
	}
	return s.client.ID
}

// SignOut borra el access token actual del store y limpia la sesión. Sin
// token es un no-op.
func (s *Session) SignOut(ctx context.Context) error {
	if !s.IsAuthenticated() {
		s.reset()
		return nil
	}
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.signout"),
		logger.UserID(s.UserID()),
	)

	err := s.svc.deps.Accounts.DeleteAccessToken(ctx, s.token.AccessToken)
	if err != nil && !repository.IsNotFound(err) {
		log.Warn("delete access token failed", logger.Err(err))
		return serviceErr("sign out failed", err)
	}
	s.reset()
	log.Debug("signed out")
	return nil
}

func (s *Session) reset() {
	s.token, s.user, s.client = nil, nil, nil
}

func (s *Session) assign(info *TokenInfo, user *repository.User, client *repository.AccessingClient) {
	s.token = info
	s.user = user
	s.client = client
}
