// Package passport contiene los DTOs de wire de los endpoints /passport.
// Los usan tanto los controllers como internal/httpclient.
package passport

import (
	"strings"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// LoginRequest es el body de POST /passport/login. grant_type decide qué
// campos aplican.
type LoginRequest struct {
	GrantType       string `json:"grant_type"`
	UserName        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	Domain          string `json:"domain,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	ServiceProvider string `json:"service_provider,omitempty"`
	Code            string `json:"code,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`
	Scope           string `json:"scope,omitempty"`
}

// TokenRequest convierte al request tipado. false si el grant type no existe.
func (r LoginRequest) TokenRequest() (access.TokenRequest, bool) {
	g, ok := access.ParseGrantType(r.GrantType)
	if !ok {
		return nil, false
	}
	switch g {
	case access.GrantPassword:
		return access.PasswordRequest{
			UserName: r.UserName, Password: r.Password, Domain: r.Domain,
			ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope,
		}, true
	case access.GrantRefreshToken:
		return access.RefreshTokenRequest{
			RefreshToken: r.RefreshToken, ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope,
		}, true
	case access.GrantAuthorizationCode:
		return access.AuthorizationCodeRequest{
			ServiceProvider: r.ServiceProvider, Code: r.Code,
			ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope,
		}, true
	case access.GrantClientCredentials:
		return access.ClientCredentialsRequest{
			ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope,
		}, true
	}
	return nil, false
}

// FromTokenRequest es la inversa de TokenRequest.
func FromTokenRequest(req access.TokenRequest) LoginRequest {
	switch r := req.(type) {
	case access.PasswordRequest:
		return LoginRequest{GrantType: access.GrantPassword.String(), UserName: r.UserName, Password: r.Password,
			Domain: r.Domain, ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope}
	case access.RefreshTokenRequest:
		return LoginRequest{GrantType: access.GrantRefreshToken.String(), RefreshToken: r.RefreshToken,
			ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope}
	case access.AuthorizationCodeRequest:
		return LoginRequest{GrantType: access.GrantAuthorizationCode.String(), ServiceProvider: r.ServiceProvider,
			Code: r.Code, ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope}
	case access.ClientCredentialsRequest:
		return LoginRequest{GrantType: access.GrantClientCredentials.String(),
			ClientID: r.ClientID, ClientSecret: r.ClientSecret, Scope: r.Scope}
	}
	return LoginRequest{}
}

// SetCodeRequest es el body de POST /passport/authcode.
type SetCodeRequest struct {
	ServiceProvider string `json:"service_provider"`
	Code            string `json:"code"`
	InsertNew       bool   `json:"insert_new,omitempty"`
}

type AuthCodeResponse struct {
	ID              string `json:"id"`
	ServiceProvider string `json:"service_provider"`
	OwnerType       string `json:"owner_type"`
	OwnerID         string `json:"owner_id"`
	Name            string `json:"name,omitempty"`
}

func FromAuthCode(c *repository.AuthorizationCode) AuthCodeResponse {
	return AuthCodeResponse{
		ID:              c.ID,
		ServiceProvider: c.ServiceProvider,
		OwnerType:       c.OwnerType.String(),
		OwnerID:         c.OwnerID,
		Name:            c.Name,
	}
}

// PermissionResponse es un PermissionItem en el wire.
type PermissionResponse struct {
	SiteID      string   `json:"site_id"`
	TargetType  string   `json:"target_type"`
	TargetID    string   `json:"target_id"`
	Permissions []string `json:"permissions"`
}

func FromPermission(p *repository.PermissionItem) PermissionResponse {
	list := p.List()
	if list == nil {
		list = []string{}
	}
	return PermissionResponse{
		SiteID:      p.SiteID,
		TargetType:  p.TargetType.String(),
		TargetID:    p.TargetID,
		Permissions: list,
	}
}

// SavePermissionRequest es el body de PUT /passport/permissions/...
type SavePermissionRequest struct {
	Permissions []string `json:"permissions"`
}

// CheckResponse es la respuesta de GET /passport/permissions/{siteID}/check.
type CheckResponse struct {
	SiteID      string   `json:"site_id"`
	Permissions []string `json:"permissions"`
	Any         bool     `json:"any,omitempty"`
	Granted     bool     `json:"granted"`
}

type RegisterRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Market   string `json:"market,omitempty"`
}

func (r RegisterRequest) Access() access.RegisterRequest {
	return access.RegisterRequest{
		UserName: r.UserName, Password: r.Password, Nickname: r.Nickname,
		Email: r.Email, Phone: r.Phone, Market: r.Market,
	}
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserResponse nunca incluye el hash del password.
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func FromUser(u *repository.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID, Name: u.Name, Nickname: u.Nickname, Avatar: u.Avatar, Email: u.Email, Phone: u.Phone}
}

// MeResponse es GET /passport/me.
type MeResponse struct {
	User       *UserResponse `json:"user,omitempty"`
	ClientID   string        `json:"client_id,omitempty"`
	ResourceID string        `json:"resource_id,omitempty"`
	Scope      string        `json:"scope,omitempty"`
}

// ErrorResponse es el body de los errores de administración.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Códigos de ErrorResponse para errores de administración, uno por ChangeErrorKind.
const (
	ErrCodeArgument     = "INVALID_ARGUMENT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeService      = "INTERNAL_SERVER_ERROR"
)

// KindFromCode mapea un ErrorResponse.Code a ChangeErrorKind.
func KindFromCode(code string) access.ChangeErrorKind {
	switch strings.ToUpper(code) {
	case ErrCodeArgument, "BAD_REQUEST", "INVALID_JSON", "MISSING_FIELDS", "INVALID_PARAMETER":
		return access.ErrorKindArgument
	case ErrCodeUnauthorized:
		return access.ErrorKindUnauthorized
	case ErrCodeForbidden:
		return access.ErrorKindForbidden
	case ErrCodeNotFound:
		return access.ErrorKindNotFound
	}
	return access.ErrorKindService
}

// CodeFromKind es la inversa de KindFromCode.
func CodeFromKind(k access.ChangeErrorKind) string {
	switch k {
	case access.ErrorKindArgument:
		return ErrCodeArgument
	case access.ErrorKindUnauthorized:
		return ErrCodeUnauthorized
	case access.ErrorKindForbidden:
		return ErrCodeForbidden
	case access.ErrorKindNotFound:
		return ErrCodeNotFound
	}
	return ErrCodeService
}
