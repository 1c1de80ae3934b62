package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of row change recorded
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// IsValid checks if the action is known
func (a Action) IsValid() bool {
	return a == ActionInsert || a == ActionUpdate || a == ActionDelete
}

// WatchedTables are the tables whose changes are audited
var WatchedTables = map[string]bool{
	"customers": true,
	"products":  true,
	"orders":    true,
	"suppliers": true,
	"purchases": true,
	"payments":  true,
	"routes":    true,
	"users":     true,
}

// Entry is one append-only audit record. Entries are never updated or deleted.
type Entry struct {
	ID         uuid.UUID
	TableName  string
	RecordID   uuid.UUID
	Action     Action
	ActorID    *uuid.UUID
	OldValues  json.RawMessage
	NewValues  json.RawMessage
	OccurredAt time.Time
}

// NewEntry builds an entry stamped now
func NewEntry(table string, recordID uuid.UUID, action Action, actorID *uuid.UUID, oldValues, newValues json.RawMessage) *Entry {
	return &Entry{
		ID:         uuid.New(),
		TableName:  table,
		RecordID:   recordID,
		Action:     action,
		ActorID:    actorID,
		OldValues:  oldValues,
		NewValues:  newValues,
		OccurredAt: time.Now(),
	}
}

// Filter narrows an audit listing
type Filter struct {
	TableName string
	RecordID  *uuid.UUID
	ActorID   *uuid.UUID
	Action    Action
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// Repository reads and appends audit entries
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	FindAll(ctx context.Context, filter Filter) ([]Entry, int64, error)
}
