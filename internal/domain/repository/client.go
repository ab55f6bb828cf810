package repository

import (
	"github.com/dropDatabas3/nuscien/internal/security/password"
	tokens "github.com/dropDatabas3/nuscien/internal/security/token"
)

// credentialKeyBytes es la entropía de las credential keys generadas.
const credentialKeyBytes = 32

// AccessingClient es la identidad de una app/servicio (client OAuth).
// Solo se almacena el digest de la credential key.
type AccessingClient struct {
	Base
	Name              string // app id público, único
	Nickname          string
	CredentialKeyHash string
}

// NewAccessingClient construye un client activo sin credential key.
func NewAccessingClient(name string) *AccessingClient {
	return &AccessingClient{Base: Base{State: StateNormal}, Name: name}
}

// RenewCredentialKey genera una credential key nueva, guarda su digest y
// retorna el texto plano. Es la única vez que el plano está disponible.
func (c *AccessingClient) RenewCredentialKey() (string, error) {
	key, err := tokens.NewSecret(credentialKeyBytes)
	if err != nil {
		return "", err
	}
	c.CredentialKeyHash = password.Digest(key)
	return key, nil
}

// SetCredentialKey guarda el digest de una key provista por el operador.
func (c *AccessingClient) SetCredentialKey(key string) {
	c.CredentialKeyHash = password.Digest(key)
}

// ValidateCredentialKey compara key contra el digest almacenado.
func (c *AccessingClient) ValidateCredentialKey(key string) bool {
	if c == nil {
		return false
	}
	return password.DigestEqual(key, c.CredentialKeyHash)
}
