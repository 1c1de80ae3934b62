package models

import (
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is the persistence model for an audit entry.
// A database trigger rejects UPDATE and DELETE on this table.
type AuditLogModel struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key"`
	Table      string       `gorm:"column:table_name;type:varchar(64);not null;index:idx_audit_record,priority:1"`
	RecordID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_audit_record,priority:2"`
	Action     audit.Action `gorm:"type:varchar(10);not null"`
	ActorID    *uuid.UUID   `gorm:"type:uuid;index"`
	OldValues  *string      `gorm:"type:jsonb"`
	NewValues  *string      `gorm:"type:jsonb"`
	OccurredAt time.Time    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain Entry
func (m *AuditLogModel) ToDomain() audit.Entry {
	e := audit.Entry{
		ID:         m.ID,
		TableName:  m.Table,
		RecordID:   m.RecordID,
		Action:     m.Action,
		ActorID:    m.ActorID,
		OccurredAt: m.OccurredAt,
	}
	if m.OldValues != nil {
		e.OldValues = json.RawMessage(*m.OldValues)
	}
	if m.NewValues != nil {
		e.NewValues = json.RawMessage(*m.NewValues)
	}
	return e
}

// AuditLogModelFromDomain creates a persistence model from a domain Entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	m := &AuditLogModel{
		ID:         e.ID,
		Table:      e.TableName,
		RecordID:   e.RecordID,
		Action:     e.Action,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt,
	}
	if len(e.OldValues) > 0 {
		s := string(e.OldValues)
		m.OldValues = &s
	}
	if len(e.NewValues) > 0 {
		s := string(e.NewValues)
		m.NewValues = &s
	}
	return m
}
