package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter represents query parameters for the audit log
type ListFilter struct {
	TableName string     `form:"table_name"`
	RecordID  string     `form:"record_id" binding:"omitempty,uuid"`
	ActorID   string     `form:"actor_id" binding:"omitempty,uuid"`
	Action    string     `form:"action" binding:"omitempty,oneof=INSERT UPDATE DELETE"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page      int        `form:"page" binding:"min=0"`
	PageSize  int        `form:"page_size" binding:"min=0,max=200"`
}

// EntryResponse is one audit record in API responses
type EntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	TableName  string          `json:"table_name"`
	RecordID   uuid.UUID       `json:"record_id"`
	Action     string          `json:"action"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Service reads the audit log. Entries are written by the persistence layer,
// never through this service.
type Service struct {
	repo audit.Repository
}

// NewService creates a new audit Service
func NewService(repo audit.Repository) *Service {
	return &Service{repo: repo}
}

// List returns audit entries newest first
func (s *Service) List(ctx context.Context, filter ListFilter) (shared.Paginated[EntryResponse], error) {
	if filter.TableName != "" && !audit.WatchedTables[filter.TableName] {
		return shared.Paginated[EntryResponse]{}, shared.NewDomainError("INVALID_INPUT", "Table "+filter.TableName+" is not audited")
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return shared.Paginated[EntryResponse]{}, shared.NewDomainError("INVALID_INPUT", "from must be before to")
	}

	normalized := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize("occurred_at")
	domainFilter := audit.Filter{
		TableName: filter.TableName,
		Action:    audit.Action(filter.Action),
		From:      filter.From,
		To:        filter.To,
		Page:      normalized.Page,
		PageSize:  normalized.PageSize,
	}
	var err error
	if domainFilter.RecordID, err = parseOptionalID(filter.RecordID); err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}
	if domainFilter.ActorID, err = parseOptionalID(filter.ActorID); err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}

	entries, total, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}
	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = EntryResponse{
			ID:         e.ID,
			TableName:  e.TableName,
			RecordID:   e.RecordID,
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			OldValues:  e.OldValues,
			NewValues:  e.NewValues,
			OccurredAt: e.OccurredAt,
		}
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// History returns every change of one record, newest first
func (s *Service) History(ctx context.Context, table string, recordID uuid.UUID) (shared.Paginated[EntryResponse], error) {
	return s.List(ctx, ListFilter{TableName: table, RecordID: recordID.String(), PageSize: 200})
}

func parseOptionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid ID: "+raw)
	}
	return &id, nil
}
