// Package tokens genera los valores opacos de access/refresh tokens y credential keys.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewValue genera un valor de token: dos UUID v4 en hex sin guiones, concatenados (64 chars).
func NewValue() string {
	return hexUUID() + hexUUID()
}

func hexUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewSecret genera un secreto aleatorio (base64url sin padding) de nBytes de entropía.
func NewSecret(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", fmt.Errorf("tokens: invalid secret size %d", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
