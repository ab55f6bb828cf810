package access

// TokenRequest es cualquiera de los requests de sign-in. El set es cerrado:
// solo los tipos de este paquete lo implementan.
type TokenRequest interface {
	GrantType() GrantType
	clientCredentials() (clientID, secret string)
}

// PasswordRequest es el grant password. Domain selecciona un LoginProvider
// registrado; vacío usa el store local.
type PasswordRequest struct {
	UserName     string `json:"username"`
	Password     string `json:"password"`
	Domain       string `json:"domain,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RefreshTokenRequest es el grant refresh_token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizationCodeRequest es el grant authorization_code. ServiceProvider
// nombra al emisor del code (ej: "google").
type AuthorizationCodeRequest struct {
	ServiceProvider string `json:"service_provider"`
	Code            string `json:"code"`
	ClientID        string `json:"client_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`
	Scope           string `json:"scope,omitempty"`
}

// ClientCredentialsRequest es el grant client_credentials (sin user).
type ClientCredentialsRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope,omitempty"`
}

func (PasswordRequest) GrantType() GrantType          { return GrantPassword }
func (RefreshTokenRequest) GrantType() GrantType      { return GrantRefreshToken }
func (AuthorizationCodeRequest) GrantType() GrantType { return GrantAuthorizationCode }
func (ClientCredentialsRequest) GrantType() GrantType { return GrantClientCredentials }

func (r PasswordRequest) clientCredentials() (string, string) { return r.ClientID, r.ClientSecret }

func (r RefreshTokenRequest) clientCredentials() (string, string) {
	return r.ClientID, r.ClientSecret
}

func (r AuthorizationCodeRequest) clientCredentials() (string, string) {
	return r.ClientID, r.ClientSecret
}

func (r ClientCredentialsRequest) clientCredentials() (string, string) {
	return r.ClientID, r.ClientSecret
}

// SetCodeRequest guarda (o rota) un authorization code para la identidad de la sesión.
type SetCodeRequest struct {
	ServiceProvider string `json:"service_provider"`
	Code            string `json:"code"`
	// InsertNew fuerza un registro nuevo en vez de reusar el del owner.
	InsertNew bool `json:"insert_new,omitempty"`
}

// RegisterRequest da de alta un user local.
type RegisterRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Market   string `json:"market,omitempty"`
}
