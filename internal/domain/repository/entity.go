package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityState es el estado de ciclo de vida de una entidad.
type EntityState int

const (
	StateDraft   EntityState = 0
	StateRequest EntityState = 1
	StateNormal  EntityState = 2
	StateDeleted EntityState = 3
)

func (s EntityState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateRequest:
		return "request"
	case StateNormal:
		return "normal"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ParseEntityState acepta el nombre ("normal") o vacío (=> normal).
func ParseEntityState(s string) (EntityState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StateDraft, true
	case "request":
		return StateRequest, true
	case "", "normal":
		return StateNormal, true
	case "deleted":
		return StateDeleted, true
	}
	return StateNormal, false
}

// ChangeMethod describe el resultado de una escritura.
type ChangeMethod int

const (
	ChangeUnchanged ChangeMethod = iota
	ChangeSame
	ChangeAdd
	ChangeUpdate
	ChangeRemove
	ChangeInvalid
)

func (m ChangeMethod) String() string {
	switch m {
	case ChangeSame:
		return "same"
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	case ChangeInvalid:
		return "invalid"
	default:
		return "unchanged"
	}
}

// Succeeded indica si la escritura fue aplicada (o no hacía falta).
func (m ChangeMethod) Succeeded() bool {
	return m != ChangeInvalid
}

// Base agrupa los campos comunes de todas las entidades.
type Base struct {
	ID                   string
	State                EntityState
	CreationTime         time.Time
	LastModificationTime time.Time
}

// IsNew indica si la entidad todavía no fue persistida.
func (b *Base) IsNew() bool {
	return b.ID == ""
}

// IsNormal indica si la entidad está activa.
func (b *Base) IsNormal() bool {
	return b.State == StateNormal
}

// Touch prepara la entidad para persistirse: asigna ID y setea timestamps.
// Retorna true si la entidad era nueva.
func (b *Base) Touch(now time.Time) bool {
	isNew := b.ID == ""
	if isNew {
		b.ID = uuid.NewString()
	}
	if b.CreationTime.IsZero() {
		b.CreationTime = now
	}
	b.LastModificationTime = now
	return isNew
}
