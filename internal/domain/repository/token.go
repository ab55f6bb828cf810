package repository

import (
	"strings"
	"time"
)

// Token es un par access/refresh emitido para un user y/o un client.
// Name es el valor del access token.
type Token struct {
	Base
	Name           string
	RefreshToken   string
	UserID         string
	ClientID       string
	GrantType      string
	ScopeString    string
	ExpirationTime time.Time
}

// IsExpired indica si el token ya no es válido en now.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpirationTime)
}

// IsClosedToExpiration indica si queda menos de 1/4 de la vida total del token
// (medida desde LastModificationTime hasta ExpirationTime).
func (t *Token) IsClosedToExpiration(now time.Time) bool {
	lifetime := t.ExpirationTime.Sub(t.LastModificationTime)
	remaining := t.ExpirationTime.Sub(now)
	return !(lifetime/4 < remaining)
}

// Scopes retorna los scopes separados por espacio.
func (t *Token) Scopes() []string {
	return strings.Fields(t.ScopeString)
}

// IsClientOnly indica si el token pertenece solo a un client (sin user).
func (t *Token) IsClientOnly() bool {
	return t.UserID == "" && t.ClientID != ""
}
