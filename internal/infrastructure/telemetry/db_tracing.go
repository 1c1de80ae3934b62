package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	SlowQueryThresh time.Duration
	// LogFullSQL keeps bound variables in spans and slow query logs. Development only.
	LogFullSQL bool
}

const (
	defaultSlowQueryThresh = 200 * time.Millisecond
	tracingStartKey        = "telemetry:trace_start"
)

// gormCallbacks registers fn before or after every gorm operation under name
func gormCallbacks(db *gorm.DB, before bool, name string, fn func(*gorm.DB)) error {
	cb := db.Callback()
	if before {
		return errors.Join(
			cb.Create().Before("gorm:create").Register(name+":create", fn),
			cb.Query().Before("gorm:query").Register(name+":query", fn),
			cb.Update().Before("gorm:update").Register(name+":update", fn),
			cb.Delete().Before("gorm:delete").Register(name+":delete", fn),
			cb.Row().Before("gorm:row").Register(name+":row", fn),
			cb.Raw().Before("gorm:raw").Register(name+":raw", fn),
		)
	}
	return errors.Join(
		cb.Create().After("gorm:create").Register(name+":create", fn),
		cb.Query().After("gorm:query").Register(name+":query", fn),
		cb.Update().After("gorm:update").Register(name+":update", fn),
		cb.Delete().After("gorm:delete").Register(name+":delete", fn),
		cb.Row().After("gorm:row").Register(name+":row", fn),
		cb.Raw().After("gorm:raw").Register(name+":raw", fn),
	)
}

// RegisterDBTracing installs the otelgorm plugin plus a callback that flags
// slow and failed statements on the active span and in the log.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	logger = nopLogger(logger)
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQueryThresh
	}

	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	t := &slowQueryTracer{thresh: cfg.SlowQueryThresh, fullSQL: cfg.LogFullSQL, logger: logger.Named("db")}
	if err := gormCallbacks(db, true, "telemetry_trace:before", t.before); err != nil {
		return err
	}
	if err := gormCallbacks(db, false, "telemetry_trace:after", t.after); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

type slowQueryTracer struct {
	thresh  time.Duration
	fullSQL bool
	logger  *zap.Logger
}

func (t *slowQueryTracer) before(db *gorm.DB) {
	db.InstanceSet(tracingStartKey, time.Now())
}

func (t *slowQueryTracer) after(db *gorm.DB) {
	span := trace.SpanFromContext(db.Statement.Context)
	recording := span.IsRecording()

	if recording {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
	}

	v, ok := db.InstanceGet(tracingStartKey)
	if !ok {
		return
	}
	elapsed := time.Since(v.(time.Time))
	if elapsed <= t.thresh {
		return
	}
	if recording {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
	statement := db.Statement.SQL.String()
	if t.fullSQL {
		statement = db.Dialector.Explain(statement, db.Statement.Vars...)
	}
	t.logger.Warn("Slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", t.thresh),
		zap.String("sql", statement),
	)
}
