package access

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// LoginProvider verifica un password contra un sistema externo (LDAP, otro
// servidor, ...) para un domain. Retorna el user local ya persistido.
type LoginProvider interface {
	Name() string
	Process(ctx context.Context, req PasswordRequest) (*repository.User, error)
}

// CodeVerifierProvider verifica authorization codes de un service provider.
//
// HasSaved indica si los codes también se persisten localmente: si es false,
// el store ni se consulta y el provider resuelve siempre.
type CodeVerifierProvider interface {
	Name() string
	HasSaved() bool
	Process(ctx context.Context, req AuthorizationCodeRequest) (*repository.User, error)
}

// Named es lo mínimo que necesita el Registry.
type Named interface {
	Name() string
}

// Registry guarda providers por nombre (case-insensitive). Seguro para uso concurrente.
type Registry[T Named] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewRegistry crea un registry vacío.
func NewRegistry[T Named]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register agrega o reemplaza el provider con ese nombre.
func (r *Registry[T]) Register(p T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[registryKey(p.Name())] = p
}

// Remove quita el provider. Retorna false si no existía.
func (r *Registry[T]) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := registryKey(name)
	if _, ok := r.items[k]; !ok {
		return false
	}
	delete(r.items, k)
	return true
}

// Get busca por nombre. Un registry nil no tiene providers.
func (r *Registry[T]) Get(name string) (T, bool) {
	var zero T
	if r == nil || strings.TrimSpace(name) == "" {
		return zero, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[registryKey(name)]
	return p, ok
}

// Names retorna los nombres registrados, ordenados.
func (r *Registry[T]) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
