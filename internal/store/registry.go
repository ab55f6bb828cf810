// Package store provee el registry de adapters de almacenamiento para cuentas.
//
// Cada adapter se registra en init() y se selecciona por nombre desde la config
// (storage.driver). Importar internal/store/adapters/dal registra todos.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

// Adapter representa un backend capaz de abrir conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter ("memory", "postgres", "gorm").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión activa que expone el AccountRepository.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
	Accounts() repository.AccountRepository
}

// Migrator lo implementan las conexiones que pueden crear su schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "postgres", "gorm"
	Name string

	// DSN connection string (postgres / gorm)
	DSN string

	// Dialect para el adapter gorm: "sqlite" | "postgres"
	Dialect string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión usando el adapter indicado en cfg.Name.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}

// Migrate ejecuta el schema si la conexión lo soporta.
func Migrate(ctx context.Context, conn Connection) error {
	m, ok := conn.(Migrator)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}
