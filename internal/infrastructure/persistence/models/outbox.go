package models

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEntryModel is a row of outbox_events. Its fields mirror
// shared.OutboxEntry one to one so the two convert directly; keep them in sync.
type OutboxEntryModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID `gorm:"type:uuid"`
	EventType     string
	AggregateID   uuid.UUID `gorm:"type:uuid"`
	AggregateType string
	Payload       []byte              `gorm:"type:jsonb"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20)"`
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OutboxEntryModel) TableName() string { return "outbox_events" }

func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	e := shared.OutboxEntry(*m)
	return &e
}

func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	m := OutboxEntryModel(*e)
	return &m
}
