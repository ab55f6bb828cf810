package middlewares

import (
	"context"

	"github.com/dropDatabas3/nuscien/internal/access"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxSession
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestID, rid)
}

// GetRequestID retorna el request id del contexto o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

// WithSessionContext guarda la sesión del request.
func WithSessionContext(ctx context.Context, s *access.Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

// GetSession retorna la sesión del request. Nil si no pasó por WithSession.
func GetSession(ctx context.Context) *access.Session {
	s, _ := ctx.Value(ctxSession).(*access.Session)
	return s
}
