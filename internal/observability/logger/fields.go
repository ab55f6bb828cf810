package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field evita importar zap en los callers.
type Field = zap.Field

// ─── HTTP ───

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// ─── Identidad ───

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// ClientID crea un campo para el ID (o app id) del accessing client.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// GrantType crea un campo para el grant type del sign-in.
func GrantType(v string) zap.Field {
	return zap.String("grant_type", v)
}

// SiteID crea un campo para el site de un permiso o setting.
func SiteID(v string) zap.Field {
	return zap.String("site_id", v)
}

// Provider crea un campo para el nombre de un provider externo (login o code verifier).
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// ErrorCode crea un campo para el código OAuth devuelto al caller.
func ErrorCode(v string) zap.Field {
	return zap.String("error_code", v)
}

// ─── Sistema ───

func Component(v string) zap.Field {
	return zap.String("component", v)
}

func Op(v string) zap.Field {
	return zap.String("op", v)
}

func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Count(v int) zap.Field {
	return zap.Int("count", v)
}

func String(key, v string) zap.Field {
	return zap.String(key, v)
}

func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
