// Package errors es el error estándar de la capa HTTP.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/http/dto/passport"
)

// AppError define la estructura estándar para errores de la aplicación
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetail devuelve una COPIA con Detail, para no mutar los errores base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// FromError convierte cualquier error en AppError. Los *access.ChangeError se
// mapean por kind; el resto es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if ce, ok := access.AsChangeError(err); ok {
		return FromChangeError(ce)
	}
	return ErrInternalServerError.WithCause(err)
}

// FromChangeError mapea kind -> status: Argument 400, Unauthorized 401,
// Forbidden 403, NotFound 404, Service 500.
func FromChangeError(ce *access.ChangeError) *AppError {
	var base *AppError
	switch ce.Kind {
	case access.ErrorKindArgument:
		base = ErrInvalidArgument
	case access.ErrorKindUnauthorized:
		base = ErrUnauthorized
	case access.ErrorKindForbidden:
		base = ErrForbidden
	case access.ErrorKindNotFound:
		base = ErrNotFound
	default:
		// el mensaje de un error de servicio no se expone
		return ErrInternalServerError.WithCause(ce)
	}
	return base.WithDetail(ce.Message).WithCause(ce)
}

// WriteError escribe el AppError como JSON con su status.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(passport.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// TokenStatus es el status HTTP de un sign-in / authorize fallido.
func TokenStatus(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case access.CodeInvalidAccessToken, access.CodeUnauthorizedClient, access.CodeInvalidClient:
		return http.StatusUnauthorized
	case access.CodeAccessDenied:
		return http.StatusForbidden
	case access.CodeServerError:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// ─── Errores predefinidos ───

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "Uno de los parámetros de la URL o Query String es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidArgument = &AppError{
		Code:       passport.ErrCodeArgument,
		Message:    "Uno de los argumentos es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       passport.ErrCodeUnauthorized,
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       passport.ErrCodeForbidden,
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       passport.ErrCodeNotFound,
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Ha excedido el límite de solicitudes. Intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &AppError{
		Code:       passport.ErrCodeService,
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
