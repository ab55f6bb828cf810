// Package passport contiene los controllers de /passport: sign-in, authorize,
// authorization codes, permisos y settings.
package passport

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	dto "github.com/dropDatabas3/nuscien/internal/http/dto/passport"
	"github.com/dropDatabas3/nuscien/internal/http/errors"
	"github.com/dropDatabas3/nuscien/internal/http/helpers"
	"github.com/dropDatabas3/nuscien/internal/http/middlewares"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// Controller expone access.Service por HTTP.
type Controller struct {
	svc *access.Service
}

func NewController(svc *access.Service) *Controller {
	return &Controller{svc: svc}
}

// Register monta las rutas. El router ya aplicó WithSession; login recibe
// middlewares propios (rate limit).
func (c *Controller) Register(r chi.Router, login ...func(http.Handler) http.Handler) {
	r.With(login...).Post("/login", c.Login)
	r.Get("/authorize", c.Authorize)
	r.Post("/logout", c.Logout)
	r.Post("/register", c.RegisterUser)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireSession())
		r.Get("/me", c.Me)
		r.Post("/password", c.ChangePassword)
		r.Post("/authcode", c.SetAuthorizationCode)
		r.Get("/permissions/{siteID}/check", c.CheckPermission)
		r.Get("/permissions/{siteID}/{targetType}/{targetID}", c.GetPermission)
		r.Put("/permissions/{siteID}/{targetType}/{targetID}", c.SavePermission)
		r.Get("/settings/{siteID}/{key}", c.GetSettings)
		r.Put("/settings/{siteID}/{key}", c.SaveSettings)
	})
}

func (c *Controller) session(r *http.Request) *access.Session {
	if s := middlewares.GetSession(r.Context()); s != nil {
		return s
	}
	return c.svc.NewSession()
}

func writeToken(w http.ResponseWriter, info *access.TokenInfo) {
	if info.ErrorCode == access.CodeInvalidAccessToken {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	helpers.WriteJSON(w, errors.TokenStatus(info.ErrorCode), info)
}

// Login maneja POST /passport/login (JSON o form, dispatch por grant_type).
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PassportController.Login"))

	body, err := helpers.ReadLogin(w, r)
	if err != nil {
		writeToken(w, access.Failed(access.CodeInvalidRequest, "request body is invalid"))
		return
	}
	req, ok := body.TokenRequest()
	if !ok {
		writeToken(w, access.Failed(access.CodeInvalidRequest, "grant_type is not supported"))
		return
	}

	info := c.session(r).SignIn(ctx, req)
	if !info.Succeeded() {
		log.Debug("sign in rejected", logger.GrantType(body.GrantType), logger.ErrorCode(info.ErrorCode))
	}
	writeToken(w, info)
}

// Authorize maneja GET /passport/authorize. Si el token está por expirar la
// respuesta trae el token renovado.
func (c *Controller) Authorize(w http.ResponseWriter, r *http.Request) {
	sess := c.session(r)
	if sess.IsAuthenticated() {
		writeToken(w, sess.Token())
		return
	}
	writeToken(w, sess.Authorize(r.Context(), middlewares.BearerToken(r)))
}

// Logout maneja POST /passport/logout. Sin token es 204 igual.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.session(r).SignOut(r.Context()); err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.NoContent(w)
}

// RegisterUser maneja POST /passport/register.
func (c *Controller) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}
	u, err := c.svc.Register(r.Context(), req.Access())
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.FromUser(u))
}

// Me maneja GET /passport/me.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	sess := c.session(r)
	tk := sess.Token()
	helpers.WriteJSON(w, http.StatusOK, dto.MeResponse{
		User:       dto.FromUser(sess.User()),
		ClientID:   tk.ClientID,
		ResourceID: tk.ResourceID,
		Scope:      tk.Scope,
	})
}

// ChangePassword maneja POST /passport/password.
func (c *Controller) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}
	if err := c.session(r).ChangePassword(r.Context(), req.OldPassword, req.NewPassword); err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.NoContent(w)
}

// SetAuthorizationCode maneja POST /passport/authcode.
func (c *Controller) SetAuthorizationCode(w http.ResponseWriter, r *http.Request) {
	var req dto.SetCodeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}
	code, err := c.session(r).SetAuthorizationCode(r.Context(), access.SetCodeRequest{
		ServiceProvider: req.ServiceProvider,
		Code:            req.Code,
		InsertNew:       req.InsertNew,
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromAuthCode(code))
}

func target(r *http.Request) (siteID string, tt repository.TargetType, targetID string) {
	tt, _ = repository.ParseTargetType(chi.URLParam(r, "targetType"))
	return chi.URLParam(r, "siteID"), tt, chi.URLParam(r, "targetID")
}

// GetPermission maneja GET /passport/permissions/{siteID}/{targetType}/{targetID}.
func (c *Controller) GetPermission(w http.ResponseWriter, r *http.Request) {
	siteID, tt, targetID := target(r)
	item, err := c.session(r).GetPermission(r.Context(), siteID, tt, targetID)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromPermission(item))
}

// SavePermission maneja PUT /passport/permissions/{siteID}/{targetType}/{targetID}.
func (c *Controller) SavePermission(w http.ResponseWriter, r *http.Request) {
	var req dto.SavePermissionRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}
	siteID, tt, targetID := target(r)
	item, err := c.session(r).SavePermission(r.Context(), siteID, tt, targetID, req.Permissions)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromPermission(item))
}

// CheckPermission maneja GET /passport/permissions/{siteID}/check?p=a,b[&any=true].
func (c *Controller) CheckPermission(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	q := r.URL.Query()

	var perms []string
	for _, v := range q["p"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
	}
	if len(perms) == 0 {
		errors.WriteError(w, errors.ErrInvalidParameter.WithDetail("p is required"))
		return
	}
	anyOf, _ := strconv.ParseBool(q.Get("any"))

	sess := c.session(r)
	var granted bool
	if anyOf {
		granted = sess.HasAnyPermission(r.Context(), siteID, perms...)
	} else {
		granted = sess.HasPermission(r.Context(), siteID, perms...)
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CheckResponse{
		SiteID:      siteID,
		Permissions: perms,
		Any:         anyOf,
		Granted:     granted,
	})
}

// GetSettings maneja GET /passport/settings/{siteID}/{key}. Responde el JSON guardado tal cual.
func (c *Controller) GetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := c.session(r).GetSettings(r.Context(), chi.URLParam(r, "siteID"), chi.URLParam(r, "key"))
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, v)
}

// SaveSettings maneja PUT /passport/settings/{siteID}/{key}.
func (c *Controller) SaveSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithCause(err))
		return
	}
	if err := c.session(r).SaveSettings(r.Context(), chi.URLParam(r, "siteID"), chi.URLParam(r, "key"), json.RawMessage(raw)); err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.NoContent(w)
}
