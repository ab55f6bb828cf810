package access

import (
	"context"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	"github.com/dropDatabas3/nuscien/internal/security/password"
)

// checkPassword aplica la política y la blacklist configuradas.
func (s *Service) checkPassword(plain string) error {
	if plain == "" {
		return changeErr(ErrorKindArgument, "password is required")
	}
	if ok, reasons := s.deps.PasswordPolicy.Validate(plain); !ok {
		return changeErr(ErrorKindArgument, password.Describe(reasons))
	}
	if s.deps.Blacklist != nil && s.deps.Blacklist.Contains(plain) {
		return changeErr(ErrorKindArgument, "password is too common")
	}
	return nil
}

// Register da de alta un user local. No inicia sesión.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.register"),
	)

	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, changeErr(ErrorKindArgument, "user name is required")
	}
	if err := s.checkPassword(req.Password); err != nil {
		return nil, err
	}

	_, err := s.deps.Accounts.GetUserByLogname(ctx, name)
	switch {
	case err == nil:
		return nil, changeErr(ErrorKindArgument, "user name is already taken")
	case !repository.IsNotFound(err):
		return nil, serviceErr("user lookup failed", err)
	}

	u := repository.NewUser(name)
	u.Nickname = strings.TrimSpace(req.Nickname)
	u.Email = strings.TrimSpace(req.Email)
	u.Phone = strings.TrimSpace(req.Phone)
	u.Market = strings.TrimSpace(req.Market)
	if err := u.SetPassword(req.Password); err != nil {
		return nil, changeErr(ErrorKindArgument, err.Error())
	}

	m, err := s.deps.Accounts.SaveUser(ctx, u)
	if repository.IsConflict(err) {
		return nil, changeErr(ErrorKindArgument, "user name is already taken")
	}
	if err != nil || !m.Succeeded() {
		log.Error("save user failed", logger.Err(err))
		return nil, serviceErr("save user failed", err)
	}
	log.Info("user registered", logger.UserID(u.ID))
	return u, nil
}

// ChangePassword cambia el password del user de la sesión verificando el actual.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.password.change"),
		logger.UserID(s.UserID()),
	)
	if !s.IsAuthenticated() || s.user == nil {
		return changeErr(ErrorKindUnauthorized, "sign in is required")
	}
	if err := s.svc.checkPassword(newPassword); err != nil {
		return err
	}

	accounts := s.svc.deps.Accounts
	u, err := accounts.GetUserByID(ctx, s.user.ID)
	if repository.IsNotFound(err) {
		return changeErr(ErrorKindNotFound, "user not found")
	}
	if err != nil {
		return serviceErr("user lookup failed", err)
	}
	if !u.ValidatePassword(oldPassword) {
		return changeErr(ErrorKindForbidden, "current password is incorrect")
	}
	if err := u.SetPassword(newPassword); err != nil {
		return changeErr(ErrorKindArgument, err.Error())
	}
	m, err := accounts.SaveUser(ctx, u)
	if err != nil || !m.Succeeded() {
		log.Error("save user failed", logger.Err(err))
		return serviceErr("save user failed", err)
	}
	s.user = u
	log.Info("password changed")
	return nil
}

// Register da de alta un user local desde una sesión (anónima o no).
func (s *Session) Register(ctx context.Context, req RegisterRequest) (*repository.User, error) {
	return s.svc.Register(ctx, req)
}
