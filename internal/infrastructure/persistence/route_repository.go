package persistence

import (
	"context"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/datascope"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRouteRepository implements logistics.RouteRepository using GORM
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID finds a route within the caller's scope
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*logistics.Route, error) {
	var model models.RouteModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Scopes(datascope.Scope(ctx, identity.ResourceRoute)).
			Where("routes.id = ?", id).
			First(&model).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists routes matching the filter
func (r *GormRouteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]logistics.Route, error) {
	var routeModels []models.RouteModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := r.applyFilter(tx.Model(&models.RouteModel{}).Scopes(datascope.Scope(ctx, identity.ResourceRoute)), filter)
		return applyPagination(query, filter, routeSort, "scheduled_date").Find(&routeModels).Error
	})
	if err != nil {
		return nil, err
	}
	routes := make([]logistics.Route, len(routeModels))
	for i, model := range routeModels {
		routes[i] = *model.ToDomain()
	}
	return routes, nil
}

// Count counts routes matching the filter
func (r *GormRouteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := tx.Model(&models.RouteModel{}).Scopes(datascope.Scope(ctx, identity.ResourceRoute))
		return r.applyFilter(query, filter).Count(&count).Error
	})
	return count, err
}

// sharedStops counts how many of the requested customer IDs a route visits
const sharedStops = `(SELECT count(DISTINCT c.v) FROM jsonb_array_elements_text(routes.customer_ids) AS c(v) WHERE c.v IN ?)`

// FindCandidates returns routes visiting at least minShared of customerIDs.
// Filtering and ordering by the shared count happen before the limit.
func (r *GormRouteRepository) FindCandidates(ctx context.Context, customerIDs []uuid.UUID, minShared, limit int) ([]*logistics.Route, error) {
	if len(customerIDs) == 0 {
		return []*logistics.Route{}, nil
	}
	ids := make([]string, len(customerIDs))
	for i, id := range customerIDs {
		ids[i] = id.String()
	}
	minShared = max(minShared, 1)

	var routeModels []models.RouteModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := tx.Scopes(datascope.Scope(ctx, identity.ResourceRoute)).
			Where("jsonb_exists_any(routes.customer_ids, ?)", pq.StringArray(ids)).
			Where(sharedStops+" >= ?", ids, minShared).
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  sharedStops + " DESC, routes.scheduled_date DESC",
				Vars: []any{ids},
			}})
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.Find(&routeModels).Error
	})
	if err != nil {
		return nil, err
	}
	routes := make([]*logistics.Route, len(routeModels))
	for i := range routeModels {
		routes[i] = routeModels[i].ToDomain()
	}
	return routes, nil
}

// Save creates or updates a route
func (r *GormRouteRepository) Save(ctx context.Context, route *logistics.Route) error {
	return withSession(ctx, r.db, func(tx *gorm.DB) error {
		return saveAggregate(tx, models.RouteModelFromDomain(route), route.ID, &route.BaseAggregateRoot)
	})
}

// Delete deletes a route the caller can see
func (r *GormRouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withSession(ctx, r.db, func(tx *gorm.DB) error {
		result := tx.Scopes(datascope.Scope(ctx, identity.ResourceRoute)).
			Where("routes.id = ?", id).
			Delete(&models.RouteModel{})
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormRouteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("routes.name ILIKE ?", likePattern(filter.Search))
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("routes.status = ?", v)
	}
	if v, ok := filterUUID(filter, "driver_id"); ok {
		query = query.Where("routes.driver_id = ?", v)
	}
	if v, ok := filter.Filters["date"].(time.Time); ok {
		query = query.Where("routes.scheduled_date = ?", v.Format(time.DateOnly))
	}
	return query
}

var _ logistics.RouteRepository = (*GormRouteRepository)(nil)
