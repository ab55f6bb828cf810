package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

// DefaultSlowThreshold marca una query como lenta.
const DefaultSlowThreshold = 200 * time.Millisecond

// zapLogger manda los logs de gorm al logger del contexto.
// ErrRecordNotFound no se loguea: es un resultado normal de los Get.
type zapLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newZapLogger(level gormlogger.LogLevel) *zapLogger {
	return &zapLogger{level: level, slowThreshold: DefaultSlowThreshold}
}

func (l *zapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *zapLogger) log(ctx context.Context) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("store"), logger.Component("gorm"))
}

func (l *zapLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *zapLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *zapLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (l *zapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log(ctx).Error("query failed",
			logger.Err(err),
			logger.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log(ctx).Warn("slow query",
			logger.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log(ctx).Debug("query",
			logger.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}
