// Package httpclient es el cliente de un servidor NuScien remoto. Habla con
// los endpoints /passport y devuelve los mismos resultados que access: el
// sign-in nunca falla con error Go (TokenInfo trae el código) y las
// operaciones de administración retornan *access.ChangeError.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	dto "github.com/dropDatabas3/nuscien/internal/http/dto/passport"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

const maxResponse = 1 << 20

// Client guarda el token actual; es seguro para uso concurrente.
type Client struct {
	BaseURL string

	// credenciales de la app, se mandan en cada sign-in si el request no trae otras
	ClientID     string
	ClientSecret string

	HTTP *http.Client

	mu    sync.RWMutex
	token *access.TokenInfo
	sf    singleflight.Group
}

// New crea un cliente con timeout default de 10s.
func New(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Token retorna una copia del token actual o nil.
func (c *Client) Token() *access.TokenInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return nil
	}
	t := *c.token
	return &t
}

// SetToken reemplaza el token actual (nil lo limpia).
func (c *Client) SetToken(t *access.TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = t
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

// ─── Sign-in ───

// tokenCall ejecuta un request cuyo body de respuesta es un TokenInfo. Los
// errores de transporte y respuestas ilegibles son server_error.
func (c *Client) tokenCall(req *http.Request) *access.TokenInfo {
	log := logger.From(req.Context()).With(logger.Component("httpclient"), logger.Path(req.URL.Path))

	status, body, err := c.do(req)
	if err != nil {
		log.Warn("remote call failed", logger.Err(err))
		return access.Failed(access.CodeServerError, "remote server is unavailable")
	}
	if status == http.StatusTooManyRequests {
		return access.Failed(access.CodeAccessDenied, "too many sign-in attempts")
	}

	var info access.TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		log.Warn("remote response is not a token", logger.Status(status), logger.Err(err))
		return access.Failed(access.CodeServerError, fmt.Sprintf("unexpected response (status %d)", status))
	}
	if !info.Succeeded() && info.ErrorCode == "" {
		return access.Failed(access.CodeServerError, fmt.Sprintf("unexpected response (status %d)", status))
	}
	if info.Succeeded() {
		c.SetToken(&info)
	}
	return &info
}

// SignIn despacha cualquier TokenRequest al endpoint /passport/login.
func (c *Client) SignIn(ctx context.Context, tr access.TokenRequest) *access.TokenInfo {
	if tr == nil {
		return access.Failed(access.CodeInvalidRequest, "request is required")
	}
	body := dto.FromTokenRequest(tr)
	if body.ClientID == "" && c.ClientID != "" {
		body.ClientID, body.ClientSecret = c.ClientID, c.ClientSecret
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/passport/login", body)
	if err != nil {
		return access.Failed(access.CodeServerError, err.Error())
	}
	return c.tokenCall(req)
}

func (c *Client) SignInByPassword(ctx context.Context, req access.PasswordRequest) *access.TokenInfo {
	return c.SignIn(ctx, req)
}

func (c *Client) SignInByRefreshToken(ctx context.Context, req access.RefreshTokenRequest) *access.TokenInfo {
	return c.SignIn(ctx, req)
}

func (c *Client) SignInByAuthorizationCode(ctx context.Context, req access.AuthorizationCodeRequest) *access.TokenInfo {
	return c.SignIn(ctx, req)
}

func (c *Client) SignInByClientCredentials(ctx context.Context, req access.ClientCredentialsRequest) *access.TokenInfo {
	return c.SignIn(ctx, req)
}

// Authorize valida accessToken en el servidor; si el servidor lo renovó el
// token nuevo queda como actual.
func (c *Client) Authorize(ctx context.Context, accessToken string) *access.TokenInfo {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return access.Failed(access.CodeInvalidRequest, "access token is required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/passport/authorize", nil)
	if err != nil {
		return access.Failed(access.CodeServerError, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	info := c.tokenCall(req)
	if info.ErrorCode == access.CodeInvalidAccessToken {
		c.mu.Lock()
		if c.token != nil && c.token.AccessToken == accessToken {
			c.token = nil
		}
		c.mu.Unlock()
	}
	return info
}

// Renew renueva el token actual: refresh_token si hay, si no authorize.
// Llamadas concurrentes comparten un único request.
func (c *Client) Renew(ctx context.Context) *access.TokenInfo {
	v, _, _ := c.sf.Do("renew", func() (any, error) {
		cur := c.Token()
		switch {
		case cur == nil:
			return access.Failed(access.CodeInvalidAccessToken, "no token to renew"), nil
		case cur.RefreshToken != "":
			return c.SignInByRefreshToken(ctx, access.RefreshTokenRequest{RefreshToken: cur.RefreshToken}), nil
		default:
			return c.Authorize(ctx, cur.AccessToken), nil
		}
	})
	return v.(*access.TokenInfo)
}

// SignOut borra el token actual en el servidor y lo limpia localmente.
func (c *Client) SignOut(ctx context.Context) error {
	tok := c.accessToken()
	if tok == "" {
		return nil
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/passport/logout", nil)
	if err != nil {
		return &access.ChangeError{Kind: access.ErrorKindService, Message: "build request failed", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := c.adminCall(req, nil); err != nil {
		return err
	}
	c.SetToken(nil)
	return nil
}

// ─── Administración ───

// adminCall ejecuta un request autenticado y decodifica out. Un status >= 400
// se traduce a *access.ChangeError usando el ErrorResponse del servidor.
func (c *Client) adminCall(req *http.Request, out any) (int, error) {
	status, body, err := c.do(req)
	if err != nil {
		return 0, &access.ChangeError{Kind: access.ErrorKindService, Message: "remote server is unavailable", Err: err}
	}
	if status >= http.StatusBadRequest {
		return status, decodeChangeError(status, body)
	}
	if out != nil && status != http.StatusNoContent {
		if err := json.Unmarshal(body, out); err != nil {
			return status, &access.ChangeError{Kind: access.ErrorKindService, Message: "remote response is invalid", Err: err}
		}
	}
	return status, nil
}

func decodeChangeError(status int, body []byte) error {
	var er dto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code == "" {
		kind := access.ErrorKindService
		switch status {
		case http.StatusBadRequest:
			kind = access.ErrorKindArgument
		case http.StatusUnauthorized:
			kind = access.ErrorKindUnauthorized
		case http.StatusForbidden:
			kind = access.ErrorKindForbidden
		case http.StatusNotFound:
			kind = access.ErrorKindNotFound
		}
		return &access.ChangeError{Kind: kind, Message: http.StatusText(status)}
	}
	msg := er.Detail
	if msg == "" {
		msg = er.Message
	}
	return &access.ChangeError{Kind: dto.KindFromCode(er.Code), Message: msg}
}

// authed ejecuta build con el token actual. Si el servidor responde 401 y hay
// token, renueva una vez y reintenta.
func (c *Client) authed(ctx context.Context, build func() (*http.Request, error), out any) error {
	for attempt := 0; ; attempt++ {
		tok := c.accessToken()
		if tok == "" {
			return &access.ChangeError{Kind: access.ErrorKindUnauthorized, Message: "sign in first"}
		}
		req, err := build()
		if err != nil {
			return &access.ChangeError{Kind: access.ErrorKindService, Message: "build request failed", Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+tok)

		status, err := c.adminCall(req, out)
		if status != http.StatusUnauthorized || attempt > 0 {
			return err
		}
		if !c.Renew(ctx).Succeeded() {
			return err
		}
	}
}

// Me retorna la identidad del token actual.
func (c *Client) Me(ctx context.Context) (*dto.MeResponse, error) {
	var out dto.MeResponse
	err := c.authed(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/passport/me", nil)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAuthorizationCode guarda un code para la identidad del token actual.
func (c *Client) SetAuthorizationCode(ctx context.Context, req access.SetCodeRequest) (*dto.AuthCodeResponse, error) {
	body := dto.SetCodeRequest{ServiceProvider: req.ServiceProvider, Code: req.Code, InsertNew: req.InsertNew}
	var out dto.AuthCodeResponse
	err := c.authed(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, "/passport/authcode", body)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func permissionPath(siteID string, tt repository.TargetType, targetID string) string {
	return "/passport/permissions/" + url.PathEscape(siteID) + "/" + tt.String() + "/" + url.PathEscape(targetID)
}

func toItem(resp dto.PermissionResponse) *repository.PermissionItem {
	tt, _ := repository.ParseTargetType(resp.TargetType)
	item := repository.NewPermissionItem(resp.SiteID, tt, resp.TargetID)
	item.Set(resp.Permissions)
	return item
}

// GetPermission lee los permisos de un target en un site.
func (c *Client) GetPermission(ctx context.Context, siteID string, tt repository.TargetType, targetID string) (*repository.PermissionItem, error) {
	var out dto.PermissionResponse
	err := c.authed(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, permissionPath(siteID, tt, targetID), nil)
	}, &out)
	if err != nil {
		return nil, err
	}
	return toItem(out), nil
}

// SavePermission reemplaza los permisos de un target. Requiere admin en el site.
func (c *Client) SavePermission(ctx context.Context, siteID string, tt repository.TargetType, targetID string, perms []string) (*repository.PermissionItem, error) {
	var out dto.PermissionResponse
	err := c.authed(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPut, permissionPath(siteID, tt, targetID), dto.SavePermissionRequest{Permissions: perms})
	}, &out)
	if err != nil {
		return nil, err
	}
	return toItem(out), nil
}

func (c *Client) check(ctx context.Context, siteID string, anyOf bool, perms []string) (bool, error) {
	if len(perms) == 0 {
		return false, nil
	}
	q := url.Values{"p": perms}
	if anyOf {
		q.Set("any", "true")
	}
	path := "/passport/permissions/" + url.PathEscape(siteID) + "/check?" + q.Encode()

	var out dto.CheckResponse
	err := c.authed(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, path, nil)
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Granted, nil
}

// HasPermission indica si el token actual tiene todos los permisos en el site.
func (c *Client) HasPermission(ctx context.Context, siteID string, perms ...string) (bool, error) {
	return c.check(ctx, siteID, false, perms)
}

// HasAnyPermission indica si el token actual tiene alguno de los permisos.
func (c *Client) HasAnyPermission(ctx context.Context, siteID string, perms ...string) (bool, error) {
	return c.check(ctx, siteID, true, perms)
}
