package access

import (
	"context"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
	"github.com/dropDatabas3/nuscien/internal/security/password"
)

const msgBadCredentials = "user name or password is incorrect"

// SignIn despacha por grant type.
func (s *Session) SignIn(ctx context.Context, req TokenRequest) *TokenInfo {
	switch r := req.(type) {
	case PasswordRequest:
		return s.SignInByPassword(ctx, r)
	case RefreshTokenRequest:
		return s.SignInByRefreshToken(ctx, r)
	case AuthorizationCodeRequest:
		return s.SignInByAuthorizationCode(ctx, r)
	case ClientCredentialsRequest:
		return s.SignInByClientCredentials(ctx, r)
	}
	return Failed(CodeInvalidRequest, "unsupported grant type")
}

// SignInByPassword valida user + password (local o vía LoginProvider del domain).
func (s *Session) SignInByPassword(ctx context.Context, req PasswordRequest) *TokenInfo {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.signin.password"),
	)
	return s.record(ctx, GrantPassword, func() *TokenInfo {
		name := strings.TrimSpace(req.UserName)
		if req.Password == "" {
			return Failed(CodeInvalidPassword, "password is required")
		}
		if name == "" {
			return Failed(CodeInvalidPassword, msgBadCredentials)
		}

		var user *repository.User
		if p, ok := s.svc.deps.LoginProviders.Get(req.Domain); ok {
			u, err := p.Process(ctx, req)
			if err != nil {
				log.Debug("login provider rejected", logger.Provider(p.Name()), logger.Err(err))
				return Failed(CodeInvalidPassword, msgBadCredentials)
			}
			user = u
		} else {
			u, err := s.svc.deps.Accounts.GetUserByLogname(ctx, name)
			if err != nil && !repository.IsNotFound(err) {
				log.Warn("user lookup failed", logger.Err(err))
				return storeFailure(err)
			}
			if !u.ValidatePassword(req.Password) {
				log.Debug("password check failed")
				return Failed(CodeInvalidPassword, msgBadCredentials)
			}
			user = u
		}
		if user == nil || user.ID == "" || !user.IsNormal() {
			return Failed(CodeInvalidPassword, msgBadCredentials)
		}

		client, fail := s.requestClient(ctx, req.ClientID)
		if fail != nil {
			return fail
		}
		return s.issue(ctx, issueInput{
			grant:        GrantPassword,
			user:         user,
			client:       client,
			clientSecret: req.ClientSecret,
			scope:        req.Scope,
			withRefresh:  true,
		})
	})
}

// SignInByRefreshToken reemite usando un refresh token vigente.
func (s *Session) SignInByRefreshToken(ctx context.Context, req RefreshTokenRequest) *TokenInfo {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.signin.refresh"),
	)
	return s.record(ctx, GrantRefreshToken, func() *TokenInfo {
		if strings.TrimSpace(req.RefreshToken) == "" {
			return Failed(CodeInvalidRequest, "refresh token is required")
		}
		tk, err := s.svc.deps.Accounts.GetTokenByRefreshToken(ctx, req.RefreshToken)
		if repository.IsNotFound(err) {
			return Failed(CodeInvalidAccessToken, "refresh token is not found")
		}
		if err != nil {
			log.Warn("token lookup failed", logger.Err(err))
			return storeFailure(err)
		}
		if fail := s.rejectExpired(ctx, tk); fail != nil {
			return fail
		}

		user, owner, fail := s.tokenOwner(ctx, tk)
		if fail != nil {
			return fail
		}
		client, fail := s.requestClient(ctx, req.ClientID)
		if fail != nil {
			return fail
		}
		return s.issue(ctx, issueInput{
			grant:        GrantRefreshToken,
			existing:     tk,
			user:         user,
			owner:        owner,
			client:       client,
			clientSecret: req.ClientSecret,
		})
	})
}

// SignInByAuthorizationCode canjea un code de un service provider.
func (s *Session) SignInByAuthorizationCode(ctx context.Context, req AuthorizationCodeRequest) *TokenInfo {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.signin.code"),
		logger.Provider(req.ServiceProvider),
	)
	return s.record(ctx, GrantAuthorizationCode, func() *TokenInfo {
		provider := repository.NormalizeProvider(req.ServiceProvider)
		if provider == "" || req.Code == "" {
			return Failed(CodeInvalidRequest, "service provider and code are required")
		}

		client, fail := s.requestClient(ctx, req.ClientID)
		if fail != nil {
			return fail
		}
		byUser := func(u *repository.User) *TokenInfo {
			if u == nil || u.ID == "" || !u.IsNormal() {
				return Failed(CodeInvalidCode, "the user is not available")
			}
			return s.issue(ctx, issueInput{
				grant:        GrantAuthorizationCode,
				user:         u,
				client:       client,
				clientSecret: req.ClientSecret,
				scope:        req.Scope,
				withRefresh:  true,
			})
		}
		viaProvider := func(p CodeVerifierProvider) *TokenInfo {
			u, err := p.Process(ctx, req)
			if err != nil {
				log.Debug("code verifier rejected", logger.Err(err))
				return Failed(CodeInvalidCode, "the code is invalid")
			}
			return byUser(u)
		}

		verifier, hasVerifier := s.svc.deps.CodeVerifiers.Get(provider)
		if hasVerifier && !verifier.HasSaved() {
			return viaProvider(verifier)
		}

		code, err := s.svc.deps.Accounts.GetAuthorizationCodeByCode(ctx, provider, password.Digest(req.Code))
		if repository.IsNotFound(err) {
			if hasVerifier {
				return viaProvider(verifier)
			}
			return Failed(CodeInvalidCode, "the code is not found")
		}
		if err != nil {
			log.Warn("code lookup failed", logger.Err(err))
			return storeFailure(err)
		}

		switch code.OwnerType {
		case repository.OwnerTypeUser:
			u, err := s.svc.deps.Accounts.GetUserByID(ctx, code.OwnerID)
			if err != nil && !repository.IsNotFound(err) {
				return storeFailure(err)
			}
			return byUser(u)
		case repository.OwnerTypeServiceClient:
			owner, err := s.svc.deps.Accounts.GetClientByID(ctx, code.OwnerID)
			if repository.IsNotFound(err) || (err == nil && !owner.IsNormal()) {
				return Failed(CodeInvalidCode, "the client is not available")
			}
			if err != nil {
				return storeFailure(err)
			}
			return s.issue(ctx, issueInput{
				grant:        GrantAuthorizationCode,
				owner:        owner,
				client:       client,
				clientSecret: req.ClientSecret,
				scope:        req.Scope,
				withRefresh:  true,
			})
		}
		return Failed(CodeInvalidCode, "resource is invalid")
	})
}

// SignInByClientCredentials emite un token solo de client.
func (s *Session) SignInByClientCredentials(ctx context.Context, req ClientCredentialsRequest) *TokenInfo {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.signin.client"),
		logger.ClientID(req.ClientID),
	)
	return s.record(ctx, GrantClientCredentials, func() *TokenInfo {
		appID := strings.TrimSpace(req.ClientID)
		if appID == "" {
			return Failed(CodeInvalidRequest, "client id is required")
		}
		c, err := s.svc.deps.Accounts.GetClientByName(ctx, appID)
		if repository.IsNotFound(err) || (err == nil && !c.IsNormal()) {
			log.Debug("client not registered")
			return Failed(CodeUnauthorizedClient, "the client is not registered")
		}
		if err != nil {
			log.Warn("client lookup failed", logger.Err(err))
			return storeFailure(err)
		}
		if req.ClientSecret == "" {
			return Failed(CodeInvalidRequest, "client secret is required")
		}
		return s.issue(ctx, issueInput{
			grant:        GrantClientCredentials,
			client:       c,
			clientSecret: req.ClientSecret,
			scope:        req.Scope,
		})
	})
}

// Authorize valida un bearer access token y carga la sesión. Un token cerca
// de expirar se renueva (mismo refresh token).
func (s *Session) Authorize(ctx context.Context, accessToken string) *TokenInfo {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("access.authorize"),
	)
	info := s.guard(ctx, func() *TokenInfo {
		accessToken = strings.TrimSpace(accessToken)
		if accessToken == "" {
			return Failed(CodeInvalidRequest, "access token is required")
		}
		tk, err := s.svc.deps.Accounts.GetTokenByName(ctx, accessToken)
		if repository.IsNotFound(err) {
			return Failed(CodeInvalidAccessToken, "access token is not found")
		}
		if err != nil {
			log.Warn("token lookup failed", logger.Err(err))
			return storeFailure(err)
		}
		if fail := s.rejectExpired(ctx, tk); fail != nil {
			return fail
		}
		user, owner, fail := s.tokenOwner(ctx, tk)
		if fail != nil {
			return fail
		}
		return s.issue(ctx, issueInput{
			grant:    GrantType(tk.GrantType),
			existing: tk,
			user:     user,
			owner:    owner,
		})
	})
	if !info.Succeeded() {
		s.reset()
	}
	return info
}

// rejectExpired borra los tokens expirados del dueño y falla si tk expiró.
func (s *Session) rejectExpired(ctx context.Context, tk *repository.Token) *TokenInfo {
	if !tk.IsExpired(s.svc.now()) {
		return nil
	}
	if _, err := s.svc.CleanupExpiredTokens(ctx, tk.UserID, tk.ClientID); err != nil {
		logger.From(ctx).Warn("expired tokens cleanup failed", logger.Err(err))
	}
	return Failed(CodeInvalidAccessToken, "expired")
}

// tokenOwner resuelve el user (o el client para tokens sin user) de un token.
func (s *Session) tokenOwner(ctx context.Context, tk *repository.Token) (*repository.User, *repository.AccessingClient, *TokenInfo) {
	accounts := s.svc.deps.Accounts
	if tk.UserID != "" {
		u, err := accounts.GetUserByID(ctx, tk.UserID)
		if repository.IsNotFound(err) || (err == nil && !u.IsNormal()) {
			return nil, nil, Failed(CodeInvalidAccessToken, "the user is not available")
		}
		if err != nil {
			return nil, nil, storeFailure(err)
		}
		return u, nil, nil
	}
	c, err := accounts.GetClientByID(ctx, tk.ClientID)
	if repository.IsNotFound(err) || (err == nil && !c.IsNormal()) {
		return nil, nil, Failed(CodeInvalidAccessToken, "the client is not available")
	}
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	return nil, c, nil
}

// requestClient resuelve el client id (app id) opcional de un request.
func (s *Session) requestClient(ctx context.Context, appID string) (*repository.AccessingClient, *TokenInfo) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, nil
	}
	c, err := s.svc.deps.Accounts.GetClientByName(ctx, appID)
	if repository.IsNotFound(err) || (err == nil && !c.IsNormal()) {
		return nil, Failed(CodeInvalidClient, "the client is not found")
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return c, nil
}

// record corre fn bajo guard y reporta el resultado a métricas y logs.
func (s *Session) record(ctx context.Context, grant GrantType, fn func() *TokenInfo) *TokenInfo {
	info := s.guard(ctx, fn)
	s.svc.deps.Metrics.SignIn(grant, info.ErrorCode)

	log := logger.From(ctx).With(logger.Layer("service"), logger.GrantType(grant.String()))
	if info.Succeeded() {
		log.Info("signed in", logger.UserID(info.UserID), logger.ClientID(info.ClientID))
	} else {
		log.Info("sign in failed", logger.ErrorCode(info.ErrorCode))
	}
	return info
}

// guard garantiza que el sign-in siempre retorne un TokenInfo.
func (s *Session) guard(ctx context.Context, fn func() *TokenInfo) (info *TokenInfo) {
	defer func() {
		if r := recover(); r != nil {
			logger.From(ctx).Error("sign in panicked", logger.Any("panic", r))
			info = Failed(CodeServerError, "unexpected error")
		}
		if info == nil {
			info = Failed(CodeServerError, "no result")
		}
	}()
	return fn()
}
