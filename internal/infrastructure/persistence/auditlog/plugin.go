// Package auditlog is a GORM plugin that appends an audit entry for every
// insert, update and delete on a watched table. Entries are written through
// the same connection as the change, so they commit or roll back with it.
package auditlog

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pluginName = "distribuidora:audit"
	oldRowsKey = "audit:old_rows"
)

// Plugin implements gorm.Plugin
type Plugin struct {
	tables map[string]bool
}

// New creates the plugin for the given tables; nil means audit.WatchedTables
func New(tables map[string]bool) *Plugin {
	if tables == nil {
		tables = audit.WatchedTables
	}
	return &Plugin{tables: tables}
}

// Name implements gorm.Plugin
func (p *Plugin) Name() string {
	return pluginName
}

// Initialize registers the callbacks
func (p *Plugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("audit:after_create", p.afterCreate); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("audit:before_update", p.captureOld); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("audit:after_update", p.afterUpdate); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("audit:before_delete", p.captureOld); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("audit:after_delete", p.afterDelete)
}

func (p *Plugin) watched(db *gorm.DB) bool {
	return db.Error == nil && db.Statement.Table != "" && p.tables[db.Statement.Table]
}

func (p *Plugin) afterCreate(db *gorm.DB) {
	if !p.watched(db) || db.RowsAffected == 0 || db.Statement.Schema == nil {
		return
	}
	pk := db.Statement.Schema.PrioritizedPrimaryField
	if pk == nil {
		return
	}
	ctx := db.Statement.Context
	rv := reflect.Indirect(db.Statement.ReflectValue)
	values := []reflect.Value{rv}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		values = values[:0]
		for i := 0; i < rv.Len(); i++ {
			values = append(values, reflect.Indirect(rv.Index(i)))
		}
	}
	for _, v := range values {
		raw, zero := pk.ValueOf(ctx, v)
		id, ok := raw.(uuid.UUID)
		if zero || !ok {
			continue
		}
		row := make(map[string]any, len(db.Statement.Schema.DBNames))
		for _, name := range db.Statement.Schema.DBNames {
			field := db.Statement.Schema.FieldsByDBName[name]
			row[name], _ = field.ValueOf(ctx, v)
		}
		p.appendJSON(db, id, audit.ActionInsert, nil, row)
	}
}

// captureOld loads the rows the statement is about to change
func (p *Plugin) captureOld(db *gorm.DB) {
	if !p.watched(db) {
		return
	}
	rows, err := p.loadRows(db)
	if err != nil {
		_ = db.AddError(fmt.Errorf("audit: load %s rows: %w", db.Statement.Table, err))
		return
	}
	db.InstanceSet(oldRowsKey, rows)
}

func (p *Plugin) afterUpdate(db *gorm.DB) {
	if !p.watched(db) || db.RowsAffected == 0 {
		return
	}
	oldRows := p.oldRows(db)
	if len(oldRows) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(oldRows))
	for id := range oldRows {
		ids = append(ids, id)
	}
	var current []map[string]any
	if err := p.session(db).Table(db.Statement.Table).Where("id IN ?", ids).Find(&current).Error; err != nil {
		_ = db.AddError(fmt.Errorf("audit: reload %s rows: %w", db.Statement.Table, err))
		return
	}
	for _, row := range current {
		id, ok := rowID(row)
		if !ok {
			continue
		}
		p.appendJSON(db, id, audit.ActionUpdate, oldRows[id], row)
	}
}

func (p *Plugin) afterDelete(db *gorm.DB) {
	if !p.watched(db) || db.RowsAffected == 0 {
		return
	}
	for id, row := range p.oldRows(db) {
		p.appendJSON(db, id, audit.ActionDelete, row, nil)
	}
}

func (p *Plugin) loadRows(db *gorm.DB) (map[uuid.UUID]map[string]any, error) {
	query := p.session(db).Table(db.Statement.Table)
	if c, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok && len(where.Exprs) > 0 {
			query = query.Clauses(where)
		}
	} else if db.Statement.Schema != nil && db.Statement.Schema.PrioritizedPrimaryField != nil {
		raw, zero := db.Statement.Schema.PrioritizedPrimaryField.ValueOf(db.Statement.Context, reflect.Indirect(db.Statement.ReflectValue))
		if zero {
			return nil, nil
		}
		query = query.Where("id = ?", raw)
	} else {
		return nil, nil
	}

	var rows []map[string]any
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]map[string]any, len(rows))
	for _, row := range rows {
		if id, ok := rowID(row); ok {
			byID[id] = row
		}
	}
	return byID, nil
}

func (p *Plugin) oldRows(db *gorm.DB) map[uuid.UUID]map[string]any {
	v, ok := db.InstanceGet(oldRowsKey)
	if !ok {
		return nil
	}
	rows, _ := v.(map[uuid.UUID]map[string]any)
	return rows
}

// session opens a fresh statement on the same connection or transaction.
// The context goes in the same Session call: a chained WithContext would
// clone the caller's statement back in, clauses and all.
func (p *Plugin) session(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true, SkipHooks: true, Context: db.Statement.Context})
}

func (p *Plugin) appendJSON(db *gorm.DB, id uuid.UUID, action audit.Action, oldRow, newRow map[string]any) {
	var oldValues, newValues []byte
	var err error
	if oldRow != nil {
		if oldValues, err = json.Marshal(oldRow); err != nil {
			_ = db.AddError(fmt.Errorf("audit: encode old values: %w", err))
			return
		}
	}
	if newRow != nil {
		if newValues, err = json.Marshal(newRow); err != nil {
			_ = db.AddError(fmt.Errorf("audit: encode new values: %w", err))
			return
		}
	}
	p.append(db, id, action, oldValues, newValues)
}

func (p *Plugin) append(db *gorm.DB, id uuid.UUID, action audit.Action, oldValues, newValues []byte) {
	var actorID *uuid.UUID
	if actor, ok := identity.ActorFromContext(db.Statement.Context); ok {
		actorID = &actor.UserID
	}
	entry := audit.NewEntry(db.Statement.Table, id, action, actorID, oldValues, newValues)
	if err := p.session(db).Create(models.AuditLogModelFromDomain(entry)).Error; err != nil {
		_ = db.AddError(fmt.Errorf("audit: append entry: %w", err))
	}
}

func rowID(row map[string]any) (uuid.UUID, bool) {
	switch v := row["id"].(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	case []byte:
		id, err := uuid.ParseBytes(v)
		return id, err == nil
	case [16]byte:
		return uuid.UUID(v), true
	}
	return uuid.Nil, false
}
