package repository

import (
	"strings"

	"github.com/dropDatabas3/nuscien/internal/security/password"
)

// OwnerType indica a qué tipo de identidad pertenece un authorization code.
type OwnerType int

const (
	OwnerTypeUnknown       OwnerType = 0
	OwnerTypeUser          OwnerType = 1
	OwnerTypeServiceClient OwnerType = 2
)

func (t OwnerType) String() string {
	switch t {
	case OwnerTypeUser:
		return "user"
	case OwnerTypeServiceClient:
		return "client"
	default:
		return "unknown"
	}
}

// AuthorizationCode es una prueba de identidad emitida por un provider externo
// y ligada a un owner (User o ServiceClient). Solo se guarda el digest.
type AuthorizationCode struct {
	Base
	ServiceProvider string
	CodeHash        string
	OwnerType       OwnerType
	OwnerID         string
	Name            string
	Avatar          string
	Description     string
}

// NewAuthorizationCode construye un code activo para el owner dado.
func NewAuthorizationCode(provider string, ownerType OwnerType, ownerID string) *AuthorizationCode {
	return &AuthorizationCode{
		Base:            Base{State: StateNormal},
		ServiceProvider: NormalizeProvider(provider),
		OwnerType:       ownerType,
		OwnerID:         ownerID,
	}
}

// SetCode guarda el digest SHA-512 del code.
func (c *AuthorizationCode) SetCode(code string) {
	c.CodeHash = password.Digest(code)
}

// ValidateCode compara code contra el digest almacenado.
func (c *AuthorizationCode) ValidateCode(code string) bool {
	if c == nil {
		return false
	}
	return password.DigestEqual(code, c.CodeHash)
}

// NormalizeProvider normaliza el nombre de un service provider para búsquedas.
func NormalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
