package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger routes GORM statements to zap. Every statement carries the
// request ID and the acting user so row level security decisions can be
// traced back to a caller.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as
// slow. Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{log: log.Named("gorm"), level: level, slow: defaultSlowThreshold}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		// lookups that miss are reported by the repositories
	case err != nil && isPolicyViolation(err):
		if l.level >= gormlogger.Warn {
			l.log.Warn("Row level security rejected statement", l.fields(ctx, fc, elapsed, zap.Error(err))...)
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			l.log.Error("SQL error", l.fields(ctx, fc, elapsed, zap.Error(err))...)
		}
	case l.slow > 0 && elapsed > l.slow:
		if l.level >= gormlogger.Warn {
			l.log.Warn("Slow SQL", l.fields(ctx, fc, elapsed, zap.Duration("threshold", l.slow))...)
		}
	case l.level >= gormlogger.Info:
		l.log.Debug("SQL", l.fields(ctx, fc, elapsed)...)
	}
}

func (l *GormLogger) fields(ctx context.Context, fc func() (string, int64), elapsed time.Duration, extra ...zap.Field) []zap.Field {
	sql, rows := fc()
	fields := make([]zap.Field, 0, 6+len(extra))
	fields = append(fields,
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actor, ok := identity.ActorFromContext(ctx); ok {
		fields = append(fields, zap.String("user_id", actor.UserID.String()), zap.String("role", string(actor.Role)))
	}
	return append(fields, extra...)
}

// isPolicyViolation matches PostgreSQL's insufficient_privilege error raised
// by a WITH CHECK clause
func isPolicyViolation(err error) bool {
	return strings.Contains(err.Error(), "row-level security policy")
}

// MapGormLogLevel maps the application log level to GORM's. Statements are
// only traced at debug and info.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug", "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
