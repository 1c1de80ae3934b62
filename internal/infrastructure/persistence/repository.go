package persistence

import (
	"errors"
	"strings"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrReferenced is returned when a delete or update would break a foreign key
var ErrReferenced = shared.NewDomainError("REFERENCED", "Record is referenced by other records")

// immutableColumns are never rewritten by an aggregate update
var immutableColumns = []string{"id", "created_at", "created_by"}

// saveAggregate inserts a new aggregate, or updates a stored one only if the
// row still holds the version that was loaded. A lost update reports
// shared.ErrConcurrencyConflict.
func saveAggregate(db *gorm.DB, model any, id uuid.UUID, root *shared.BaseAggregateRoot, omit ...string) error {
	if root.IsNew() {
		if err := db.Omit(omit...).Create(model).Error; err != nil {
			return translateError(err)
		}
		root.MarkPersisted()
		return nil
	}

	result := db.Model(model).
		Where("id = ? AND version = ?", id, root.PersistedVersion()).
		Select("*").
		Omit(append(append([]string{}, immutableColumns...), omit...)...).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	root.MarkPersisted()
	return nil
}

// translateError maps driver errors (translated by GORM) to domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrReferenced
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.ErrInsufficientStock
	}
	return err
}

// findOne loads the first row matching where, mapping a miss to
// shared.ErrNotFound
func findOne[M any](db *gorm.DB, where string, args ...any) (*M, error) {
	row := new(M)
	if err := db.Where(where, args...).First(row).Error; err != nil {
		return nil, translateError(err)
	}
	return row, nil
}

// convert maps loaded rows to domain values
func convert[M, D any](rows []M, toDomain func(*M) *D) []D {
	out := make([]D, len(rows))
	for i := range rows {
		out[i] = *toDomain(&rows[i])
	}
	return out
}

// deleteByID removes one row; nothing deleted is shared.ErrNotFound
func deleteByID(db *gorm.DB, model any, id uuid.UUID) error {
	result := db.Delete(model, "id = ?", id)
	switch {
	case result.Error != nil:
		return translateError(result.Error)
	case result.RowsAffected == 0:
		return shared.ErrNotFound
	}
	return nil
}

func exists(db *gorm.DB, model any, where string, args ...any) (bool, error) {
	var n int64
	if err := db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// codeKey normalizes business codes and SKUs, stored upper case
func codeKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// applyPagination applies a whitelisted ORDER BY plus LIMIT/OFFSET
func applyPagination(query *gorm.DB, filter shared.Filter, sort sortable, fallback string) *gorm.DB {
	query = query.Order(sort.column(filter.OrderBy, fallback) + " " + sortDirection(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// likePattern escapes LIKE wildcards in user input
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.TrimSpace(search)) + "%"
}

// filterString reads a string filter value
func filterString(filter shared.Filter, key string) (string, bool) {
	v, ok := filter.Filters[key]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, s != ""
	case interface{ String() string }:
		str := s.String()
		return str, str != ""
	}
	return "", false
}

// filterUUID reads a uuid filter value given as uuid.UUID or string
func filterUUID(filter shared.Filter, key string) (uuid.UUID, bool) {
	switch v := filter.Filters[key].(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return *v, *v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	}
	return uuid.Nil, false
}
