// Package datascope restricts GORM reads to the rows the calling user may see.
//
// The scope comes from the actor's role (see identity.Role.ScopeFor):
//   - all: no restriction
//   - own: rows the actor created
//   - assigned: rows assigned to the actor (a driver's orders and routes)
//   - none: nothing
//
// Usage:
//
//	scoped := db.Scopes(datascope.Scope(ctx, identity.ResourceOrder))
//	scoped.Find(&orders) // WHERE orders.assigned_driver_id = ? for drivers
//
// The same rules are enforced again by row-level-security policies in the
// database, so a query that bypasses this package still sees only its rows.
package datascope

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// columns names the ownership columns of a scoped resource
type columns struct {
	owner    string
	assignee string
}

// scopedResources maps a resource to its table-qualified ownership columns.
// The column names are constants, never user input.
var scopedResources = map[string]columns{
	identity.ResourceOrder:   {owner: "orders.created_by", assignee: "orders.assigned_driver_id"},
	identity.ResourceRoute:   {owner: "routes.created_by", assignee: "routes.driver_id"},
	identity.ResourcePayment: {owner: "payments.created_by"},
}

// Filter applies data scope filtering to GORM queries
type Filter struct {
	actor identity.Actor
	ok    bool
}

// NewFilter creates a Filter for the actor stored in ctx
func NewFilter(ctx context.Context) *Filter {
	actor, ok := identity.ActorFromContext(ctx)
	return &Filter{actor: actor, ok: ok}
}

// Apply applies data scope filtering for a specific resource.
// A missing actor sees nothing.
func (f *Filter) Apply(db *gorm.DB, resource string) *gorm.DB {
	if !f.ok {
		return db.Where("1 = 0")
	}
	cols := scopedResources[resource]
	switch f.actor.Role.ScopeFor(resource) {
	case identity.DataScopeAll:
		return db
	case identity.DataScopeOwn:
		if cols.owner == "" {
			return db.Where("1 = 0")
		}
		return db.Where(cols.owner+" = ?", f.actor.UserID)
	case identity.DataScopeAssigned:
		if cols.assignee == "" {
			return db.Where("1 = 0")
		}
		return db.Where(cols.assignee+" = ?", f.actor.UserID)
	default:
		return db.Where("1 = 0")
	}
}

// CanAccessAll returns true if the actor sees every row of the resource
func (f *Filter) CanAccessAll(resource string) bool {
	return f.ok && f.actor.Role.ScopeFor(resource) == identity.DataScopeAll
}

// Allows checks a single loaded row against the scope
func (f *Filter) Allows(resource string, createdBy, assignee *uuid.UUID) bool {
	if !f.ok {
		return false
	}
	switch f.actor.Role.ScopeFor(resource) {
	case identity.DataScopeAll:
		return true
	case identity.DataScopeOwn:
		return createdBy != nil && *createdBy == f.actor.UserID
	case identity.DataScopeAssigned:
		return assignee != nil && *assignee == f.actor.UserID
	default:
		return false
	}
}

// Scope returns a GORM scope function applying the ctx actor's data scope
func Scope(ctx context.Context, resource string) func(db *gorm.DB) *gorm.DB {
	f := NewFilter(ctx)
	return func(db *gorm.DB) *gorm.DB {
		return f.Apply(db, resource)
	}
}
