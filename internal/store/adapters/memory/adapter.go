// Package memory implementa un AccountRepository en memoria, pensado para
// desarrollo y tests. Las búsquedas son scans lineales sobre slices.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
	store "github.com/dropDatabas3/nuscien/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	return &memoryConnection{repo: New()}, nil
}

type memoryConnection struct {
	repo *Repository
}

func (c *memoryConnection) Name() string { return "memory" }

func (c *memoryConnection) Ping(ctx context.Context) error { return nil }

func (c *memoryConnection) Close() error { return nil }

func (c *memoryConnection) Accounts() repository.AccountRepository { return c.repo }

// Repository es el AccountRepository en memoria. Seguro para uso concurrente.
type Repository struct {
	mu sync.RWMutex

	// Now permite fijar el reloj (tests). Default time.Now.
	Now func() time.Time

	users    []repository.User
	groups   []repository.UserGroup
	rels     []repository.UserGroupRelationship
	clients  []repository.AccessingClient
	tokens   []repository.Token
	codes    []repository.AuthorizationCode
	perms    []repository.PermissionItem
	settings []repository.SettingsEntry
}

// New crea un repositorio vacío.
func New() *Repository {
	return &Repository{Now: time.Now}
}

var _ repository.AccountRepository = (*Repository)(nil)

func (r *Repository) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// ─── Users ───

func (r *Repository) GetUserByID(ctx context.Context, id string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.users {
		if r.users[i].ID == id {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) GetUserByLogname(ctx context.Context, name string) (*repository.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.users {
		if strings.EqualFold(r.users[i].Name, name) {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) SaveUser(ctx context.Context, u *repository.User) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID != u.ID && strings.EqualFold(r.users[i].Name, u.Name) {
			return repository.ChangeInvalid, repository.ErrConflict
		}
	}
	return upsert(&r.users, u, &u.Base, r.now(), func(x *repository.User) string { return x.ID }), nil
}

// ─── Groups ───

func (r *Repository) GetGroupByID(ctx context.Context, id string) (*repository.UserGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.groups {
		if r.groups[i].ID == id {
			g := r.groups[i]
			return &g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) SaveGroup(ctx context.Context, g *repository.UserGroup) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if g == nil || strings.TrimSpace(g.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsert(&r.groups, g, &g.Base, r.now(), func(x *repository.UserGroup) string { return x.ID }), nil
}

func (r *Repository) SaveRelationship(ctx context.Context, rel *repository.UserGroupRelationship) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if rel == nil || rel.GroupID == "" || rel.UserID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Una sola membresía por (group, user): reusar el ID existente
	if rel.ID == "" {
		for i := range r.rels {
			if r.rels[i].GroupID == rel.GroupID && r.rels[i].UserID == rel.UserID {
				rel.ID = r.rels[i].ID
				rel.CreationTime = r.rels[i].CreationTime
				break
			}
		}
	}
	return upsert(&r.rels, rel, &rel.Base, r.now(), func(x *repository.UserGroupRelationship) string { return x.ID }), nil
}

func (r *Repository) ListRelationshipsByUser(ctx context.Context, userID string) ([]repository.UserGroupRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.UserGroupRelationship
	for _, rel := range r.rels {
		if rel.UserID == userID && rel.State == repository.StateNormal {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ─── Clients ───

func (r *Repository) GetClientByID(ctx context.Context, id string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.clients {
		if r.clients[i].ID == id {
			c := r.clients[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) GetClientByName(ctx context.Context, name string) (*repository.AccessingClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.clients {
		if r.clients[i].Name == name {
			c := r.clients[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) SaveClient(ctx context.Context, c *repository.AccessingClient) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.clients {
		if r.clients[i].ID != c.ID && r.clients[i].Name == c.Name {
			return repository.ChangeInvalid, repository.ErrConflict
		}
	}
	return upsert(&r.clients, c, &c.Base, r.now(), func(x *repository.AccessingClient) string { return x.ID }), nil
}

// ─── Tokens ───

func (r *Repository) GetTokenByName(ctx context.Context, accessToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.tokens {
		if r.tokens[i].Name == accessToken {
			t := r.tokens[i]
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) GetTokenByRefreshToken(ctx context.Context, refreshToken string) (*repository.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *repository.Token
	for i := range r.tokens {
		t := r.tokens[i]
		if t.RefreshToken != refreshToken {
			continue
		}
		if best == nil || t.ExpirationTime.After(best.ExpirationTime) {
			best = &t
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *Repository) SaveToken(ctx context.Context, t *repository.Token) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if t == nil || t.Name == "" || (t.UserID == "" && t.ClientID == "") {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tokens {
		if r.tokens[i].ID != t.ID && r.tokens[i].Name == t.Name {
			return repository.ChangeInvalid, repository.ErrConflict
		}
	}
	return upsert(&r.tokens, t, &t.Base, r.now(), func(x *repository.Token) string { return x.ID }), nil
}

func (r *Repository) DeleteAccessToken(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	found := false
	for _, t := range r.tokens {
		if t.Name == accessToken {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpiredTokens(ctx context.Context, userID, clientID string, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if userID == "" && clientID == "" {
		return 0, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	removed := 0
	for _, t := range r.tokens {
		owned := (userID != "" && t.UserID == userID) || (userID == "" && t.UserID == "" && t.ClientID == clientID)
		if owned && t.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return removed, nil
}

// ─── Authorization codes ───

func (r *Repository) GetAuthorizationCodeByCode(ctx context.Context, provider, codeHash string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	provider = repository.NormalizeProvider(provider)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.codes {
		c := r.codes[i]
		if c.ServiceProvider == provider && c.CodeHash == codeHash && c.State == repository.StateNormal {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) GetAuthorizationCodeByOwner(ctx context.Context, provider string, ownerType repository.OwnerType, ownerID string) (*repository.AuthorizationCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	provider = repository.NormalizeProvider(provider)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.codes {
		c := r.codes[i]
		if c.ServiceProvider == provider && c.OwnerType == ownerType && c.OwnerID == ownerID {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) SaveAuthorizationCode(ctx context.Context, c *repository.AuthorizationCode) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if c == nil || c.ServiceProvider == "" || c.CodeHash == "" || c.OwnerID == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsert(&r.codes, c, &c.Base, r.now(), func(x *repository.AuthorizationCode) string { return x.ID }), nil
}

// ─── Permissions ───

func (r *Repository) GetPermission(ctx context.Context, siteID string, targetType repository.TargetType, targetID string) (*repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.perms {
		p := r.perms[i]
		if p.SiteID == siteID && p.TargetType == targetType && p.TargetID == targetID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) ListGroupPermissions(ctx context.Context, siteID string, groupIDs []string) ([]repository.PermissionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.PermissionItem
	for _, p := range r.perms {
		if p.SiteID != siteID || p.TargetType != repository.TargetGroup {
			continue
		}
		if _, ok := want[p.TargetID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) SavePermission(ctx context.Context, p *repository.PermissionItem) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if p == nil || p.TargetID == "" || p.TargetType == repository.TargetUnknown {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		for i := range r.perms {
			e := r.perms[i]
			if e.SiteID == p.SiteID && e.TargetType == p.TargetType && e.TargetID == p.TargetID {
				p.ID, p.CreationTime = e.ID, e.CreationTime
				break
			}
		}
	}
	return upsert(&r.perms, p, &p.Base, r.now(), func(x *repository.PermissionItem) string { return x.ID }), nil
}

// ─── Settings ───

func (r *Repository) GetSettings(ctx context.Context, siteID, key string) (*repository.SettingsEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.settings {
		s := r.settings[i]
		if s.SiteID == siteID && s.Key == key {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) SaveSettings(ctx context.Context, s *repository.SettingsEntry) (repository.ChangeMethod, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChangeUnchanged, err
	}
	if s == nil || s.Key == "" {
		return repository.ChangeInvalid, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		for i := range r.settings {
			if r.settings[i].SiteID == s.SiteID && r.settings[i].Key == s.Key {
				s.ID, s.CreationTime = r.settings[i].ID, r.settings[i].CreationTime
				break
			}
		}
	}
	return upsert(&r.settings, s, &s.Base, r.now(), func(x *repository.SettingsEntry) string { return x.ID }), nil
}

// upsert inserta o reemplaza una copia de v en list, según su ID. Caller tiene el lock.
func upsert[T any](list *[]T, v *T, base *repository.Base, now time.Time, id func(*T) string) repository.ChangeMethod {
	isNew := base.Touch(now)
	if !isNew {
		for i := range *list {
			if id(&(*list)[i]) == base.ID {
				(*list)[i] = *v
				return repository.ChangeUpdate
			}
		}
	}
	*list = append(*list, *v)
	return repository.ChangeAdd
}
