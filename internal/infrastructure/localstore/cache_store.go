package localstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheStore implements offline.CacheStore on SQLite
type CacheStore struct {
	db *gorm.DB
}

// NewCacheStore creates a CacheStore over the store
func NewCacheStore(store *Store) *CacheStore {
	return &CacheStore{db: store.DB}
}

// Put inserts or replaces the value under key
func (c *CacheStore) Put(ctx context.Context, key string, value []byte) error {
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&cacheEntryModel{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}).Error
}

// Get returns the value under key, or offline.ErrCacheMiss
func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	var m cacheEntryModel
	err := c.db.WithContext(ctx).Where(`"key" = ?`, key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offline.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return []byte(m.Value), nil
}

// Delete removes key; deleting a missing key is not an error
func (c *CacheStore) Delete(ctx context.Context, key string) error {
	return c.db.WithContext(ctx).Where(`"key" = ?`, key).Delete(&cacheEntryModel{}).Error
}

// Keys lists keys starting with prefix in lexical order
func (c *CacheStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := c.db.WithContext(ctx).Model(&cacheEntryModel{}).Order(`"key"`)
	if prefix != "" {
		escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
		query = query.Where(`"key" LIKE ? ESCAPE '\'`, escaped+"%")
	}
	var keys []string
	if err := query.Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

var _ offline.CacheStore = (*CacheStore)(nil)
