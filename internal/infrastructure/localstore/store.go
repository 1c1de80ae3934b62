// Package localstore is the agent's on-disk SQLite database: the offline
// mutation queue and the key-value cache. Both survive process restarts.
package localstore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// activeFingerprintIndex keeps at most one pending or processing operation per
// fingerprint. A concurrent duplicate insert fails on it.
const activeFingerprintIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_offline_ops_active_fingerprint
ON offline_operations (fingerprint) WHERE status IN ('pending', 'processing')`

// Store owns the SQLite connection
type Store struct {
	DB *gorm.DB
}

// Option customizes Open
type Option func(*gorm.Config)

// WithLogger sets the GORM logger (silent by default)
func WithLogger(l gormlogger.Interface) Option {
	return func(c *gorm.Config) {
		c.Logger = l
	}
}

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), cfg)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between them
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&operationModel{}, &cacheEntryModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	if err := db.Exec(activeFingerprintIndex).Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}
