package password

import (
	"crypto/sha512"
	"encoding/hex"
)

// Digest devuelve SHA-512(s) en hexadecimal (128 chars). Vacío produce vacío.
func Digest(s string) string {
	if s == "" {
		return ""
	}
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DigestEqual compara un secreto contra un digest almacenado.
// La comparación es ordinal sobre el hex (ver DESIGN.md, Open Questions).
func DigestEqual(plain, digest string) bool {
	if plain == "" || digest == "" {
		return false
	}
	return Digest(plain) == digest
}
