// Package google valida Google ID tokens como authorization codes.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// Name es el nombre del service provider.
const Name = "google"

var (
	ErrNotConfigured = errors.New("google client id not configured")
	ErrNoEmail       = errors.New("email not present in id token")
	ErrUnverified    = errors.New("email is not verified")
)

// ValidateFunc valida un ID token contra un audience.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Verifier resuelve el user local cuyo login name es el email del ID token.
// Los codes nunca se persisten: HasSaved es false.
type Verifier struct {
	ClientID string
	Accounts repository.AccountRepository

	// Validate default: idtoken.Validate
	Validate ValidateFunc
}

var _ access.CodeVerifierProvider = (*Verifier)(nil)

func New(clientID string, accounts repository.AccountRepository) *Verifier {
	return &Verifier{ClientID: clientID, Accounts: accounts, Validate: idtoken.Validate}
}

func (v *Verifier) Name() string   { return Name }
func (v *Verifier) HasSaved() bool { return false }

func (v *Verifier) Process(ctx context.Context, req access.AuthorizationCodeRequest) (*repository.User, error) {
	if v.ClientID == "" {
		return nil, ErrNotConfigured
	}
	validate := v.Validate
	if validate == nil {
		validate = idtoken.Validate
	}
	payload, err := validate(ctx, req.Code, v.ClientID)
	if err != nil {
		return nil, fmt.Errorf("google: validate id token: %w", err)
	}
	email, _ := payload.Claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrNoEmail
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, ErrUnverified
	}
	u, err := v.Accounts.GetUserByLogname(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("google: resolve user %s: %w", email, err)
	}
	return u, nil
}
