package models

import (
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RouteModel is the persistence model for the Route aggregate.
// CustomerIDs is a jsonb array of uuid strings so candidate lookups can use
// jsonb_exists_any.
type RouteModel struct {
	AggregateModel
	Name          string                `gorm:"type:varchar(200);not null"`
	DriverID      *uuid.UUID            `gorm:"type:uuid;index"`
	ScheduledDate time.Time             `gorm:"type:date;not null;index"`
	CustomerIDs   string                `gorm:"column:customer_ids;type:jsonb;not null;default:'[]'"`
	OptimizedPath *string               `gorm:"type:jsonb"`
	DistanceKm    decimal.Decimal       `gorm:"type:decimal(10,2);not null"`
	Status        logistics.RouteStatus `gorm:"type:varchar(20);not null;default:'planned'"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (RouteModel) TableName() string {
	return "routes"
}

// ToDomain converts the persistence model to a domain Route
func (m *RouteModel) ToDomain() *logistics.Route {
	r := &logistics.Route{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		DriverID:          m.DriverID,
		ScheduledDate:     m.ScheduledDate,
		CustomerIDs:       []uuid.UUID{},
		DistanceKm:        m.DistanceKm,
		Status:            m.Status,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}
	if m.CustomerIDs != "" {
		_ = json.Unmarshal([]byte(m.CustomerIDs), &r.CustomerIDs)
	}
	if m.OptimizedPath != nil {
		r.OptimizedPath = json.RawMessage(*m.OptimizedPath)
	}
	return r
}

// RouteModelFromDomain creates a persistence model from a domain Route
func RouteModelFromDomain(r *logistics.Route) *RouteModel {
	ids := r.CustomerIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	idsJSON, _ := json.Marshal(ids)
	m := &RouteModel{
		Name:          r.Name,
		DriverID:      r.DriverID,
		ScheduledDate: r.ScheduledDate,
		CustomerIDs:   string(idsJSON),
		DistanceKm:    r.DistanceKm,
		Status:        r.Status,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
	if len(r.OptimizedPath) > 0 {
		path := string(r.OptimizedPath)
		m.OptimizedPath = &path
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}
