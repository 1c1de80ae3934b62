package logistics

import (
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRouteRequest represents a request to plan a delivery route
type CreateRouteRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	ScheduledDate time.Time        `json:"scheduled_date" binding:"required"`
	CustomerIDs   []uuid.UUID      `json:"customer_ids" binding:"required,min=1"`
	DriverID      *uuid.UUID       `json:"driver_id"`
	OptimizedPath json.RawMessage  `json:"optimized_path"`
	DistanceKm    *decimal.Decimal `json:"distance_km"`
}

// SetPathRequest stores an optimized path computed by the client
type SetPathRequest struct {
	OptimizedPath json.RawMessage `json:"optimized_path" binding:"required"`
	DistanceKm    decimal.Decimal `json:"distance_km"`
}

// AssignRouteDriverRequest assigns a driver to a route
type AssignRouteDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id" binding:"required"`
}

// SimilarRoutesRequest asks for stored routes covering a customer set
type SimilarRoutesRequest struct {
	CustomerIDs []uuid.UUID `json:"customer_ids" binding:"required,min=1"`
	Threshold   float64     `json:"threshold" binding:"min=0,max=1"`
	Limit       int         `json:"limit" binding:"min=0,max=100"`
}

// RouteListFilter represents query parameters for listing routes
type RouteListFilter struct {
	Search   string     `form:"search"`
	Status   string     `form:"status" binding:"omitempty,oneof=planned active completed"`
	DriverID *uuid.UUID `form:"-"`
	Date     *time.Time `form:"date" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=200"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RouteResponse represents a route in API responses
type RouteResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	DriverID      *uuid.UUID      `json:"driver_id,omitempty"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	CustomerIDs   []uuid.UUID     `json:"customer_ids"`
	OptimizedPath json.RawMessage `json:"optimized_path,omitempty"`
	DistanceKm    decimal.Decimal `json:"distance_km"`
	Status        string          `json:"status"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// ToRouteResponse converts a domain route to a response
func ToRouteResponse(r *logistics.Route) RouteResponse {
	return RouteResponse{
		ID:            r.ID,
		Name:          r.Name,
		DriverID:      r.DriverID,
		ScheduledDate: r.ScheduledDate,
		CustomerIDs:   r.CustomerIDs,
		OptimizedPath: r.OptimizedPath,
		DistanceKm:    r.DistanceKm,
		Status:        string(r.Status),
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

// SimilarRouteResponse is a stored route with its overlap against the request
type SimilarRouteResponse struct {
	Route   RouteResponse `json:"route"`
	Overlap float64       `json:"overlap"`
}

// CachedPathResponse is an optimized path served from the path cache
type CachedPathResponse struct {
	Key           string          `json:"key"`
	OptimizedPath json.RawMessage `json:"optimized_path"`
}
