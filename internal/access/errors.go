package access

import (
	"errors"
	"fmt"
)

// ChangeErrorKind clasifica los errores de las operaciones de administración.
type ChangeErrorKind int

const (
	ErrorKindArgument ChangeErrorKind = iota + 1
	ErrorKindUnauthorized
	ErrorKindForbidden
	ErrorKindNotFound
	ErrorKindService
)

func (k ChangeErrorKind) String() string {
	switch k {
	case ErrorKindArgument:
		return "argument"
	case ErrorKindUnauthorized:
		return "unauthorized"
	case ErrorKindForbidden:
		return "forbidden"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindService:
		return "service"
	default:
		return "unknown"
	}
}

// ChangeError es el error de las operaciones de administración (permisos,
// settings, codes, registro). No se usa en el sign-in.
type ChangeError struct {
	Kind    ChangeErrorKind
	Message string
	Err     error // causa, no se expone al cliente
}

func (e *ChangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ChangeError) Unwrap() error {
	return e.Err
}

func changeErr(kind ChangeErrorKind, msg string) *ChangeError {
	return &ChangeError{Kind: kind, Message: msg}
}

func serviceErr(msg string, cause error) *ChangeError {
	return &ChangeError{Kind: ErrorKindService, Message: msg, Err: cause}
}

// IsChangeErrorKind verifica si err es un *ChangeError del kind dado.
func IsChangeErrorKind(err error, kind ChangeErrorKind) bool {
	var ce *ChangeError
	return errors.As(err, &ce) && ce.Kind == kind
}

// AsChangeError extrae el *ChangeError, si lo hay.
func AsChangeError(err error) (*ChangeError, bool) {
	var ce *ChangeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
