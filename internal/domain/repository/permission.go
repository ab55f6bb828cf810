package repository

import "strings"

// TargetType es el tipo de identidad al que se asigna un PermissionItem.
type TargetType int

const (
	TargetUnknown TargetType = 0
	TargetUser    TargetType = 1
	TargetGroup   TargetType = 2
	TargetClient  TargetType = 3
)

func (t TargetType) String() string {
	switch t {
	case TargetUser:
		return "user"
	case TargetGroup:
		return "group"
	case TargetClient:
		return "client"
	default:
		return "unknown"
	}
}

// ParseTargetType acepta "user", "group" o "client" (también "service").
func ParseTargetType(s string) (TargetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "users":
		return TargetUser, true
	case "group", "groups":
		return TargetGroup, true
	case "client", "clients", "service":
		return TargetClient, true
	}
	return TargetUnknown, false
}

// PermissionItem es el set de permission keys de un target en un site.
// Permissions guarda las keys separadas por '\n'; List se recalcula en cada lectura.
type PermissionItem struct {
	Base
	SiteID      string
	TargetType  TargetType
	TargetID    string
	Permissions string
}

// NewPermissionItem construye un item vacío y activo.
func NewPermissionItem(siteID string, targetType TargetType, targetID string) *PermissionItem {
	return &PermissionItem{Base: Base{State: StateNormal}, SiteID: siteID, TargetType: targetType, TargetID: targetID}
}

// List retorna las keys no vacías, en orden, sin deduplicar.
func (p *PermissionItem) List() []string {
	if p == nil || p.Permissions == "" {
		return nil
	}
	lines := strings.Split(p.Permissions, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Set reemplaza el set completo.
func (p *PermissionItem) Set(keys []string) {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	p.Permissions = strings.Join(clean, "\n")
}

// Add agrega keys al final. Agregar una key existente la duplica.
func (p *PermissionItem) Add(keys ...string) {
	p.Set(append(p.List(), keys...))
}

// Remove quita todas las ocurrencias de las keys. Retorna cuántas se quitaron.
func (p *PermissionItem) Remove(keys ...string) int {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[strings.TrimSpace(k)] = struct{}{}
	}
	var kept []string
	removed := 0
	for _, k := range p.List() {
		if _, ok := drop[k]; ok {
			removed++
			continue
		}
		kept = append(kept, k)
	}
	p.Set(kept)
	return removed
}

// HasAny retorna true si contiene al menos una de las keys.
func (p *PermissionItem) HasAny(keys ...string) bool {
	return hasAny(p.List(), keys)
}

// HasAll retorna true si contiene todas las keys (vacío => true).
func (p *PermissionItem) HasAll(keys ...string) bool {
	return hasAll(p.List(), keys)
}

// UserSitePermissionSet junta los permisos directos de un user con los de sus grupos en un site.
// El resultado efectivo es la unión.
type UserSitePermissionSet struct {
	SiteID string
	UserID string
	User   *PermissionItem
	Groups []*PermissionItem
}

// List retorna la unión (sin duplicados) de todas las keys.
func (s *UserSitePermissionSet) List() []string {
	if s == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(items ...*PermissionItem) {
		for _, it := range items {
			if it == nil || !it.IsNormal() {
				continue
			}
			for _, k := range it.List() {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					out = append(out, k)
				}
			}
		}
	}
	add(s.User)
	add(s.Groups...)
	return out
}

// HasAny retorna true si el user o alguno de sus grupos tiene alguna de las keys.
func (s *UserSitePermissionSet) HasAny(keys ...string) bool {
	return hasAny(s.List(), keys)
}

// HasAll retorna true si la unión contiene todas las keys.
func (s *UserSitePermissionSet) HasAll(keys ...string) bool {
	return hasAll(s.List(), keys)
}

func hasAny(set, keys []string) bool {
	for _, k := range keys {
		k = strings.TrimSpace(k)
		for _, v := range set {
			if v == k {
				return true
			}
		}
	}
	return false
}

func hasAll(set, keys []string) bool {
	for _, k := range keys {
		if !hasAny(set, []string{k}) {
			return false
		}
	}
	return true
}
