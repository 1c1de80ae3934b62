package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBDurationBuckets are query latency boundaries in seconds
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

const metricsStartKey = "telemetry:metrics_start"

// Operation labels of db_query_total
const (
	DBOperationSelect = "select"
	DBOperationInsert = "insert"
	DBOperationUpdate = "update"
	DBOperationDelete = "delete"
	DBOperationRaw    = "raw"
)

// DBMetrics counts queries by operation and table, and reports the pool state
// of the underlying sql.DB at every collection.
type DBMetrics struct {
	queryTotal    *Counter
	queryErrors   *Counter
	queryDuration *Histogram
	registration  metric.Registration
	logger        *zap.Logger
}

// RegisterDBMetrics hooks query instruments into db and registers observable
// pool gauges. Call Stop to unregister the gauges.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, errors.New("meter is required")
	}
	m := &DBMetrics{logger: nopLogger(logger)}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryErrors, err = NewCounter(meter, "db_query_errors_total", "Failed database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"), metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}
	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, maxConns, waits)
	if err != nil {
		return nil, err
	}

	if err := gormCallbacks(db, true, "telemetry_metrics:before", m.before); err != nil {
		return nil, err
	}
	if err := gormCallbacks(db, false, "telemetry_metrics:after", m.after); err != nil {
		return nil, err
	}
	return m, nil
}

// Stop unregisters the pool gauges
func (m *DBMetrics) Stop() {
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
	m.registration = nil
}

func (m *DBMetrics) before(db *gorm.DB) {
	db.InstanceSet(metricsStartKey, time.Now())
}

func (m *DBMetrics) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", detectOperation(db.Statement.SQL.String())),
		attribute.String("db.sql.table", db.Statement.Table),
	}
	m.queryTotal.Inc(ctx, attrs...)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, attrs...)
	}
	if v, ok := db.InstanceGet(metricsStartKey); ok {
		m.queryDuration.RecordDuration(ctx, time.Since(v.(time.Time)), attrs...)
	}
}

// detectOperation reads the statement verb. CTEs and unknown verbs count as raw.
func detectOperation(sql string) string {
	sql = strings.ToLower(strings.TrimSpace(sql))
	for _, op := range []string{DBOperationSelect, DBOperationInsert, DBOperationUpdate, DBOperationDelete} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return DBOperationRaw
}
