package access_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	"github.com/dropDatabas3/nuscien/internal/security/password"
	"github.com/dropDatabas3/nuscien/internal/store/adapters/memory"
)

func TestMain(m *testing.M) {
	repository.HashParams = password.Fast
	os.Exit(m.Run())
}

// clock es un reloj manual compartido por el service y el repo.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingRepo cuenta los SaveToken que llegan al store.
type countingRepo struct {
	repository.AccountRepository
	saves atomic.Int32
}

func (r *countingRepo) SaveToken(ctx context.Context, t *repository.Token) (repository.ChangeMethod, error) {
	r.saves.Add(1)
	return r.AccountRepository.SaveToken(ctx, t)
}

type fixture struct {
	clock *clock
	mem   *memory.Repository
	repo  *countingRepo
	svc   *access.Service
	rec   *recorder
}

type recorder struct {
	mu       sync.Mutex
	signins  map[string]int
	renewals int
	deleted  int
}

func (r *recorder) SignIn(g access.GrantType, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.signins == nil {
		r.signins = map[string]int{}
	}
	if code == "" {
		code = "ok"
	}
	r.signins[g.String()+"/"+code]++
}

func (r *recorder) TokenRenewed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewals++
}

func (r *recorder) ExpiredTokensDeleted(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted += n
}

func newFixture(t *testing.T, mutate ...func(*access.Deps)) *fixture {
	t.Helper()
	clk := newClock()
	mem := memory.New()
	mem.Now = clk.Now
	repo := &countingRepo{AccountRepository: mem}
	rec := &recorder{}

	deps := access.Deps{
		Accounts: repo,
		Now:      clk.Now,
		TokenTTL: 2 * time.Hour,
		Metrics:  rec,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	svc, err := access.NewService(deps)
	require.NoError(t, err)
	return &fixture{clock: clk, mem: mem, repo: repo, svc: svc, rec: rec}
}

func (f *fixture) addUser(t *testing.T, name, plain string) *repository.User {
	t.Helper()
	u := repository.NewUser(name)
	require.NoError(t, u.SetPassword(plain))
	_, err := f.mem.SaveUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (f *fixture) addClient(t *testing.T, name string) (*repository.AccessingClient, string) {
	t.Helper()
	c := repository.NewAccessingClient(name)
	key, err := c.RenewCredentialKey()
	require.NoError(t, err)
	_, err = f.mem.SaveClient(context.Background(), c)
	require.NoError(t, err)
	return c, key
}

func (f *fixture) grant(t *testing.T, siteID string, targetType repository.TargetType, targetID string, perms ...string) {
	t.Helper()
	p := repository.NewPermissionItem(siteID, targetType, targetID)
	p.Set(perms)
	_, err := f.mem.SavePermission(context.Background(), p)
	require.NoError(t, err)
}

func (f *fixture) signIn(t *testing.T, name, plain string) (*access.Session, *access.TokenInfo) {
	t.Helper()
	sess := f.svc.NewSession()
	info := sess.SignInByPassword(context.Background(), access.PasswordRequest{UserName: name, Password: plain})
	require.True(t, info.Succeeded(), "sign in failed: %s %s", info.ErrorCode, info.ErrorDescription)
	return sess, info
}
