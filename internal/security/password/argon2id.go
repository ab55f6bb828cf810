// Package password concentra el hashing de credenciales.
//
// Passwords de usuario: argon2id en formato PHC. Credential keys de clientes y
// authorization codes: digest SHA-512 hex (determinístico, se usa como clave de búsqueda).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword se retorna al hashear un password vacío.
var ErrEmptyPassword = errors.New("password: empty password")

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// Default son los parámetros de producción.
var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Fast son parámetros baratos para tests y seeds locales.
var Fast = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

// Hash devuelve un PHC string: $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// Verify compara plain contra un PHC argon2id. Un hash malformado nunca valida.
func Verify(plain, phc string) bool {
	if plain == "" || phc == "" {
		return false
	}
	var v, m, t, p int
	var rest string
	if n, _ := fmt.Sscanf(phc, "$argon2id$v=%d$m=%d,t=%d,p=%d%s", &v, &m, &t, &p, &rest); n != 5 || v != argon2.Version {
		return false
	}
	// rest = $<salt>$<dk>
	parts := splitDollar(rest)
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	dkStored, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(dkStored) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, uint32(t), uint32(m), uint8(p), uint32(len(dkStored)))
	return subtle.ConstantTimeCompare(key, dkStored) == 1
}

func splitDollar(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			if start >= 0 {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start >= 0 && start <= len(s) {
		out = append(out, s[start:])
	}
	return out
}
