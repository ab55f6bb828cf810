package access

import "strings"

// GrantType es la forma en que el caller presenta sus credenciales.
type GrantType string

const (
	GrantPassword          GrantType = "password"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
)

// ParseGrantType acepta los nombres OAuth2 ("password", "refresh_token", ...).
// "code" es alias de authorization_code.
func ParseGrantType(s string) (GrantType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "password":
		return GrantPassword, true
	case "refresh_token":
		return GrantRefreshToken, true
	case "authorization_code", "code":
		return GrantAuthorizationCode, true
	case "client_credentials":
		return GrantClientCredentials, true
	}
	return "", false
}

func (g GrantType) String() string { return string(g) }
