package localstore

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
)

// operationModel is a queued mutation row
type operationModel struct {
	ID            string         `gorm:"primaryKey;type:text"`
	OperationType string         `gorm:"type:text;not null"`
	Payload       string         `gorm:"type:text;not null"`
	Fingerprint   string         `gorm:"type:text;not null;index"`
	Status        offline.Status `gorm:"type:text;not null;index:idx_offline_ops_status_enqueued,priority:1"`
	EnqueuedAt    time.Time      `gorm:"not null;index:idx_offline_ops_status_enqueued,priority:2"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Attempts      int    `gorm:"not null"`
	LastError     string `gorm:"type:text"`
}

func (operationModel) TableName() string {
	return "offline_operations"
}

func (m *operationModel) toDomain() *offline.Operation {
	id, _ := uuid.Parse(m.ID)
	return &offline.Operation{
		ID:            id,
		OperationType: m.OperationType,
		Payload:       []byte(m.Payload),
		Fingerprint:   m.Fingerprint,
		Status:        m.Status,
		EnqueuedAt:    m.EnqueuedAt,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
	}
}

func operationFromDomain(op *offline.Operation) *operationModel {
	return &operationModel{
		ID:            op.ID.String(),
		OperationType: op.OperationType,
		Payload:       string(op.Payload),
		Fingerprint:   op.Fingerprint,
		Status:        op.Status,
		EnqueuedAt:    op.EnqueuedAt,
		StartedAt:     op.StartedAt,
		CompletedAt:   op.CompletedAt,
		Attempts:      op.Attempts,
		LastError:     op.LastError,
	}
}

// cacheEntryModel is one key-value cache row
type cacheEntryModel struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (cacheEntryModel) TableName() string {
	return "cache_entries"
}
