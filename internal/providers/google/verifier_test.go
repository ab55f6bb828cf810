package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

func fakeValidate(claims map[string]any, err error) ValidateFunc {
	return func(_ context.Context, tok, aud string) (*idtoken.Payload, error) {
		if err != nil {
			return nil, err
		}
		return &idtoken.Payload{Audience: aud, Claims: claims}, nil
	}
}

func TestVerifier_Process(t *testing.T) {
	repo := memory.New()
	u := repository.NewUser("alice@example.com")
	_, err := repo.SaveUser(context.Background(), u)
	require.NoError(t, err)

	v := New("client-1", repo)
	require.Equal(t, "google", v.Name())
	require.False(t, v.HasSaved())

	req := access.AuthorizationCodeRequest{ServiceProvider: Name, Code: "id-token"}

	v.Validate = fakeValidate(map[string]any{"email": "Alice@Example.com", "email_verified": true}, nil)
	got, err := v.Process(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	v.Validate = fakeValidate(map[string]any{"email": "alice@example.com", "email_verified": false}, nil)
	_, err = v.Process(context.Background(), req)
	require.ErrorIs(t, err, ErrUnverified)

	v.Validate = fakeValidate(map[string]any{}, nil)
	_, err = v.Process(context.Background(), req)
	require.ErrorIs(t, err, ErrNoEmail)

	v.Validate = fakeValidate(map[string]any{"email": "nobody@example.com"}, nil)
	_, err = v.Process(context.Background(), req)
	require.ErrorIs(t, err, repository.ErrNotFound)

	bad := errors.New("bad signature")
	v.Validate = fakeValidate(nil, bad)
	_, err = v.Process(context.Background(), req)
	require.ErrorIs(t, err, bad)

	_, err = New("", repo).Process(context.Background(), req)
	require.ErrorIs(t, err, ErrNotConfigured)
}
