// Package remote delega la verificación de passwords de un domain a otro
// servidor NuScien y mapea el user remoto a uno local por login name.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/httpclient"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

var (
	ErrRejected   = errors.New("remote server rejected the credentials")
	ErrNoIdentity = errors.New("remote token has no user")
	ErrNoLocal    = errors.New("remote user has no local account")
)

// Provider es un access.LoginProvider para un domain.
type Provider struct {
	Domain       string
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
	Accounts     repository.AccountRepository

	// AutoCreate da de alta el user local (sin password) si no existe.
	AutoCreate bool
}

var _ access.LoginProvider = (*Provider)(nil)

func New(domain, baseURL string, accounts repository.AccountRepository) *Provider {
	return &Provider{Domain: domain, BaseURL: baseURL, Accounts: accounts}
}

func (p *Provider) Name() string { return p.Domain }

// client arma un httpclient por llamada: el token remoto no se comparte.
func (p *Provider) client() *httpclient.Client {
	c := httpclient.New(p.BaseURL, p.ClientID, p.ClientSecret)
	if p.HTTP != nil {
		c.HTTP = p.HTTP
	}
	return c
}

func (p *Provider) Process(ctx context.Context, req access.PasswordRequest) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("provider"),
		logger.Op("remote.login"),
		logger.Provider(p.Domain),
	)

	// Paso 1: sign-in remoto con las credenciales del user (sin domain)
	c := p.client()
	info := c.SignInByPassword(ctx, access.PasswordRequest{
		UserName: req.UserName,
		Password: req.Password,
		Scope:    req.Scope,
	})
	if !info.Succeeded() {
		log.Debug("remote sign in rejected", logger.ErrorCode(info.ErrorCode))
		if info.ErrorCode == access.CodeServerError {
			return nil, fmt.Errorf("remote: %s", info.ErrorDescription)
		}
		return nil, ErrRejected
	}
	defer func() {
		if err := c.SignOut(context.WithoutCancel(ctx)); err != nil {
			log.Debug("remote sign out failed", logger.Err(err))
		}
	}()

	// Paso 2: identidad remota
	me, err := c.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: me: %w", err)
	}
	if me.User == nil || strings.TrimSpace(me.User.Name) == "" {
		return nil, ErrNoIdentity
	}

	// Paso 3: user local por login name
	u, err := p.Accounts.GetUserByLogname(ctx, me.User.Name)
	if err == nil {
		return u, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("remote: local lookup: %w", err)
	}
	if !p.AutoCreate {
		return nil, ErrNoLocal
	}

	u = repository.NewUser(me.User.Name)
	u.Nickname = me.User.Nickname
	u.Avatar = me.User.Avatar
	u.Email = me.User.Email
	u.Phone = me.User.Phone
	if _, err := p.Accounts.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("remote: create local user: %w", err)
	}
	log.Info("local user created from remote", logger.UserID(u.ID))
	return u, nil
}
