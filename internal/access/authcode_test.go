package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

type fakeVerifier struct {
	name  string
	saved bool
	user  *repository.User
	err   error
	calls int
}

func (v *fakeVerifier) Name() string   { return v.name }
func (v *fakeVerifier) HasSaved() bool { return v.saved }

func (v *fakeVerifier) Process(context.Context, access.AuthorizationCodeRequest) (*repository.User, error) {
	v.calls++
	return v.user, v.err
}

func TestSetAuthorizationCode_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "alice", "s3cret!")
	u.Nickname = "Alice A."
	_, err := f.mem.SaveUser(ctx, u)
	require.NoError(t, err)

	sess, _ := f.signIn(t, "alice", "s3cret!")
	code, err := sess.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "WeChat", Code: "abc-123"})
	require.NoError(t, err)
	require.Equal(t, "wechat", code.ServiceProvider)
	require.Equal(t, repository.OwnerTypeUser, code.OwnerType)
	require.Equal(t, u.ID, code.OwnerID)
	require.Equal(t, "Alice A.", code.Name)
	require.NotEqual(t, "abc-123", code.CodeHash)

	// rotar reusa la fila del owner
	rotated, err := sess.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "wechat", Code: "def-456"})
	require.NoError(t, err)
	require.Equal(t, code.ID, rotated.ID)

	old := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "wechat", Code: "abc-123"})
	require.Equal(t, access.CodeInvalidCode, old.ErrorCode)

	other := f.svc.NewSession()
	info := other.SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "WECHAT", Code: "def-456"})
	require.True(t, info.Succeeded(), info.ErrorDescription)
	require.Equal(t, u.ID, info.UserID)
	require.NotEmpty(t, info.RefreshToken)
	require.Equal(t, u.ID, other.UserID())

	// InsertNew crea otra fila
	fresh, err := sess.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "wechat", Code: "ghi-789", InsertNew: true})
	require.NoError(t, err)
	require.NotEqual(t, code.ID, fresh.ID)
}

func TestSetAuthorizationCode_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.NewSession().SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "wechat", Code: "x"})
	require.True(t, access.IsChangeErrorKind(err, access.ErrorKindUnauthorized))

	f.addUser(t, "alice", "s3cret!")
	sess, _ := f.signIn(t, "alice", "s3cret!")
	_, err = sess.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: " ", Code: "x"})
	require.True(t, access.IsChangeErrorKind(err, access.ErrorKindArgument))

	ce, ok := access.AsChangeError(err)
	require.True(t, ok)
	require.Equal(t, access.ErrorKindArgument, ce.Kind)
}

func TestSignInByAuthorizationCode_ServiceClientOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.addClient(t, "partner-app")

	code := repository.NewAuthorizationCode("partner", repository.OwnerTypeServiceClient, c.ID)
	code.SetCode("xyz")
	_, err := f.mem.SaveAuthorizationCode(ctx, code)
	require.NoError(t, err)

	sess := f.svc.NewSession()
	info := sess.SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "partner", Code: "xyz"})
	require.True(t, info.Succeeded(), info.ErrorDescription)
	require.Empty(t, info.UserID)
	require.Equal(t, c.ID, info.ClientID)
	require.Equal(t, c.ID, info.ResourceID)
	require.Nil(t, sess.User())
	require.Equal(t, c.ID, sess.ClientID())
}

func TestSignInByAuthorizationCode_UnknownOwnerType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := repository.NewAuthorizationCode("partner", repository.OwnerTypeUnknown, "someone")
	code.SetCode("xyz")
	_, err := f.mem.SaveAuthorizationCode(ctx, code)
	require.NoError(t, err)

	info := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "partner", Code: "xyz"})
	require.Equal(t, access.CodeInvalidCode, info.ErrorCode)
	require.Equal(t, "resource is invalid", info.ErrorDescription)
}

func TestSignInByAuthorizationCode_Verifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "alice", "s3cret!")

	t.Run("not saved skips the store", func(t *testing.T) {
		v := &fakeVerifier{name: "google", user: u}
		f.svc.CodeVerifiers().Register(v)
		t.Cleanup(func() { f.svc.CodeVerifiers().Remove("google") })

		info := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "google", Code: "id-token"})
		require.True(t, info.Succeeded())
		require.Equal(t, u.ID, info.UserID)
		require.Equal(t, 1, v.calls)
	})

	t.Run("saved falls back when the code is missing", func(t *testing.T) {
		v := &fakeVerifier{name: "corp", saved: true, user: u}
		f.svc.CodeVerifiers().Register(v)
		t.Cleanup(func() { f.svc.CodeVerifiers().Remove("corp") })

		info := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "corp", Code: "unknown"})
		require.True(t, info.Succeeded())
		require.Equal(t, 1, v.calls)

		sess, _ := f.signIn(t, "alice", "s3cret!")
		_, err := sess.SetAuthorizationCode(ctx, access.SetCodeRequest{ServiceProvider: "corp", Code: "stored"})
		require.NoError(t, err)

		info = f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "corp", Code: "stored"})
		require.True(t, info.Succeeded())
		require.Equal(t, 1, v.calls, "stored codes resolve without the verifier")
	})

	t.Run("verifier rejection", func(t *testing.T) {
		v := &fakeVerifier{name: "bad", err: errors.New("signature invalid")}
		f.svc.CodeVerifiers().Register(v)
		t.Cleanup(func() { f.svc.CodeVerifiers().Remove("bad") })

		info := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "bad", Code: "x"})
		require.Equal(t, access.CodeInvalidCode, info.ErrorCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		info := f.svc.NewSession().SignInByAuthorizationCode(ctx, access.AuthorizationCodeRequest{ServiceProvider: "google"})
		require.Equal(t, access.CodeInvalidRequest, info.ErrorCode)
	})
}
