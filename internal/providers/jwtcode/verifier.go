// Package jwtcode verifica authorization codes emitidos por un partner como
// JWT HS256. El claim sub es el id del user local.
package jwtcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

var ErrInvalidCode = errors.New("invalid_jwt")

// Verifier valida la firma, iss (si está configurado) y exp/nbf con leeway.
type Verifier struct {
	ProviderName string
	Secret       []byte
	Issuer       string
	Saved        bool
	Leeway       time.Duration
	Accounts     repository.AccountRepository

	// Now default: time.Now
	Now func() time.Time
}

var _ access.CodeVerifierProvider = (*Verifier)(nil)

func New(name string, secret []byte, accounts repository.AccountRepository) *Verifier {
	return &Verifier{
		ProviderName: name,
		Secret:       secret,
		Leeway:       30 * time.Second,
		Accounts:     accounts,
		Now:          time.Now,
	}
}

func (v *Verifier) Name() string { return v.ProviderName }

// HasSaved indica si los codes también se guardan con SetAuthorizationCode.
func (v *Verifier) HasSaved() bool { return v.Saved }

func (v *Verifier) Process(ctx context.Context, req access.AuthorizationCodeRequest) (*repository.User, error) {
	sub, err := v.Subject(req.Code)
	if err != nil {
		return nil, err
	}
	u, err := v.Accounts.GetUserByID(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("jwtcode: resolve user %s: %w", sub, err)
	}
	return u, nil
}

// Subject valida el code y retorna su sub.
func (v *Verifier) Subject(code string) (string, error) {
	if len(v.Secret) == 0 {
		return "", errors.New("jwtcode: secret not configured")
	}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(v.Leeway),
		jwtv5.WithExpirationRequired(),
	}
	if v.Now != nil {
		opts = append(opts, jwtv5.WithTimeFunc(v.Now))
	}
	if v.Issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.Issuer))
	}

	var claims jwtv5.RegisteredClaims
	tok, err := jwtv5.ParseWithClaims(code, &claims, func(*jwtv5.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub is required", ErrInvalidCode)
	}
	return claims.Subject, nil
}

// Issue firma un code para userID válido por ttl. Lo usa el partner (y los tests).
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	claims := jwtv5.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.Issuer,
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(v.Secret)
}
