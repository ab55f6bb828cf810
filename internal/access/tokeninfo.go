package access

import (
	"encoding/json"
	"time"
)

// Códigos de error del sign-in (estilo OAuth2 token endpoint).
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidPassword    = "invalid_password"
	CodeInvalidClient      = "invalid_client"
	CodeInvalidCode        = "invalid_code"
	CodeInvalidAccessToken = "invalid_access_token"
	CodeUnauthorizedClient = "unauthorized_client"
	CodeAccessDenied       = "access_denied"
	CodeServerError        = "server_error"
)

// TokenTypeBearer es el único token type emitido.
const TokenTypeBearer = "Bearer"

// TokenInfo es el resultado uniforme del sign-in: o trae un token válido o
// trae ErrorCode/ErrorDescription. Nunca ambos.
type TokenInfo struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiredAfter time.Duration
	Scope        string

	UserID     string
	ClientID   string
	ResourceID string

	ErrorCode        string
	ErrorDescription string
	ErrorURI         string
}

// Succeeded indica si el sign-in emitió un token.
func (t *TokenInfo) Succeeded() bool {
	return t != nil && t.ErrorCode == "" && t.AccessToken != ""
}

// Expiration calcula el instante de expiración relativo a from.
func (t *TokenInfo) Expiration(from time.Time) time.Time {
	return from.Add(t.ExpiredAfter)
}

// Failed construye un resultado fallido.
func Failed(code, description string) *TokenInfo {
	return &TokenInfo{ErrorCode: code, ErrorDescription: description}
}

// tokenInfoJSON es la forma de wire. expires_in va en segundos.
type tokenInfoJSON struct {
	AccessToken      string `json:"access_token,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	ClientID         string `json:"client_id,omitempty"`
	ResourceID       string `json:"resource_id,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

func (t TokenInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenInfoJSON{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		TokenType:        t.TokenType,
		ExpiresIn:        int64(t.ExpiredAfter / time.Second),
		Scope:            t.Scope,
		UserID:           t.UserID,
		ClientID:         t.ClientID,
		ResourceID:       t.ResourceID,
		Error:            t.ErrorCode,
		ErrorDescription: t.ErrorDescription,
		ErrorURI:         t.ErrorURI,
	})
}

func (t *TokenInfo) UnmarshalJSON(b []byte) error {
	var w tokenInfoJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = TokenInfo{
		AccessToken:      w.AccessToken,
		RefreshToken:     w.RefreshToken,
		TokenType:        w.TokenType,
		ExpiredAfter:     time.Duration(w.ExpiresIn) * time.Second,
		Scope:            w.Scope,
		UserID:           w.UserID,
		ClientID:         w.ClientID,
		ResourceID:       w.ResourceID,
		ErrorCode:        w.Error,
		ErrorDescription: w.ErrorDescription,
		ErrorURI:         w.ErrorURI,
	}
	return nil
}
