package repository

import (
	"strings"

	"github.com/dropDatabas3/nuscien/internal/security/password"
)

// HashParams son los parámetros argon2id usados por User.SetPassword.
var HashParams = password.Default

// User es una identidad de persona.
type User struct {
	Base
	Name         string // login name, único
	PasswordHash string
	Nickname     string
	Avatar       string
	Email        string
	Phone        string
	Market       string // site de registro (hint)
}

// NewUser construye un usuario activo.
func NewUser(name string) *User {
	return &User{Base: Base{State: StateNormal}, Name: strings.TrimSpace(name)}
}

// SetPassword guarda el hash argon2id del password.
func (u *User) SetPassword(plain string) error {
	h, err := password.Hash(HashParams, plain)
	if err != nil {
		return err
	}
	u.PasswordHash = h
	return nil
}

// ValidatePassword verifica el password contra el hash almacenado.
func (u *User) ValidatePassword(plain string) bool {
	if u == nil {
		return false
	}
	return password.Verify(plain, u.PasswordHash)
}

// DisplayName retorna el nickname o el login name.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	return u.Name
}
