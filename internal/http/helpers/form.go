package helpers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/nuscien/internal/http/dto/passport"
	"github.com/dropDatabas3/nuscien/internal/http/errors"
)

// ReadLogin acepta el body de login como JSON o como form urlencoded (estilo
// token endpoint OAuth2). client_id/client_secret también llegan por Basic auth.
func ReadLogin(w http.ResponseWriter, r *http.Request) (passport.LoginRequest, error) {
	var req passport.LoginRequest
	ct := strings.ToLower(r.Header.Get("Content-Type"))

	if strings.Contains(ct, "application/json") {
		if err := ReadJSON(w, r, &req); err != nil {
			return req, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseForm(); err != nil {
			return req, errors.ErrBadRequest.WithCause(err)
		}
		f := r.PostForm
		req = passport.LoginRequest{
			GrantType:       f.Get("grant_type"),
			UserName:        f.Get("username"),
			Password:        f.Get("password"),
			Domain:          f.Get("domain"),
			RefreshToken:    f.Get("refresh_token"),
			ServiceProvider: f.Get("service_provider"),
			Code:            f.Get("code"),
			ClientID:        f.Get("client_id"),
			ClientSecret:    f.Get("client_secret"),
			Scope:           f.Get("scope"),
		}
	}

	if id, secret, ok := r.BasicAuth(); ok && req.ClientID == "" {
		req.ClientID, req.ClientSecret = id, secret
	}
	return req, nil
}
