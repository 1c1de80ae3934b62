package persistence

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository reads and appends audit entries.
// Rows are never updated or deleted; a trigger enforces that in the database.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes an entry inside the transaction in ctx, if any
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return dbFor(ctx, r.db).Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindAll lists entries newest first with the total count
func (r *GormAuditRepository) FindAll(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	query := dbFor(ctx, r.db).Model(&models.AuditLogModel{})
	if filter.TableName != "" {
		query = query.Where("table_name = ?", filter.TableName)
	}
	if filter.RecordID != nil {
		query = query.Where("record_id = ?", *filter.RecordID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action.IsValid() {
		query = query.Where("action = ?", string(filter.Action))
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("occurred_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	var rows []models.AuditLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]audit.Entry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

var _ audit.Repository = (*GormAuditRepository)(nil)
