package logistics

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultSimilarityThreshold is the overlap a stored route needs to be offered as similar
const DefaultSimilarityThreshold = 0.8

// RouteStatus represents the lifecycle of a delivery route
type RouteStatus string

const (
	RouteStatusPlanned   RouteStatus = "planned"
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCompleted RouteStatus = "completed"
)

// IsValid checks if the status is known
func (s RouteStatus) IsValid() bool {
	switch s {
	case RouteStatusPlanned, RouteStatusActive, RouteStatusCompleted:
		return true
	}
	return false
}

// Route is an ordered list of customer stops assigned to a driver for a day
type Route struct {
	shared.BaseAggregateRoot
	Name          string
	DriverID      *uuid.UUID
	ScheduledDate time.Time
	CustomerIDs   []uuid.UUID
	OptimizedPath json.RawMessage
	DistanceKm    decimal.Decimal
	Status        RouteStatus
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// NewRoute creates a planned route over the given stops. Duplicate stops are dropped, order is kept.
func NewRoute(name string, scheduledDate time.Time, customerIDs []uuid.UUID) (*Route, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Route name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Route name cannot exceed 100 characters")
	}
	stops := dedupe(customerIDs)
	if len(stops) == 0 {
		return nil, shared.NewDomainError("NO_STOPS", "Route must have at least one customer")
	}

	r := &Route{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		ScheduledDate:     scheduledDate,
		CustomerIDs:       stops,
		DistanceKm:        decimal.Zero,
		Status:            RouteStatusPlanned,
	}
	r.AddDomainEvent(NewRouteCreatedEvent(r))
	return r, nil
}

// AssignDriver sets the driver for a planned route
func (r *Route) AssignDriver(driverID uuid.UUID) error {
	if r.Status != RouteStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "Driver can only be assigned to a planned route")
	}
	if driverID == uuid.Nil {
		return shared.NewDomainError("INVALID_DRIVER", "Driver ID cannot be empty")
	}
	r.DriverID = &driverID
	r.IncrementVersion()
	return nil
}

// SetOptimizedPath stores the path computed by the client. The payload is opaque to the server.
func (r *Route) SetOptimizedPath(path json.RawMessage, distanceKm decimal.Decimal) error {
	if len(path) > 0 && !json.Valid(path) {
		return shared.NewDomainError("INVALID_PATH", "Optimized path must be valid JSON")
	}
	if distanceKm.IsNegative() {
		return shared.NewDomainError("INVALID_DISTANCE", "Distance cannot be negative")
	}
	r.OptimizedPath = path
	r.DistanceKm = distanceKm.Round(2)
	r.IncrementVersion()
	return nil
}

// Start marks the route active
func (r *Route) Start() error {
	if r.Status != RouteStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "Only planned routes can be started")
	}
	if r.DriverID == nil {
		return shared.NewDomainError("NO_DRIVER", "Route has no assigned driver")
	}
	now := time.Now()
	r.Status = RouteStatusActive
	r.StartedAt = &now
	r.IncrementVersion()
	return nil
}

// Complete marks the route completed
func (r *Route) Complete() error {
	if r.Status != RouteStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active routes can be completed")
	}
	now := time.Now()
	r.Status = RouteStatusCompleted
	r.CompletedAt = &now
	r.IncrementVersion()
	return nil
}

// IsDrivenBy reports whether the route is assigned to the given driver
func (r *Route) IsDrivenBy(driverID uuid.UUID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// Overlap returns |requested ∩ stops| / |requested|. An empty request overlaps nothing.
func Overlap(requested, stops []uuid.UUID) float64 {
	req := dedupe(requested)
	if len(req) == 0 {
		return 0
	}
	set := make(map[uuid.UUID]struct{}, len(stops))
	for _, id := range stops {
		set[id] = struct{}{}
	}
	matched := 0
	for _, id := range req {
		if _, ok := set[id]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(req))
}

// SimilarRoute is a stored route with its overlap against a requested customer set
type SimilarRoute struct {
	Route   *Route
	Overlap float64
}

// RankSimilar keeps candidates whose overlap reaches threshold, highest overlap first.
// Ties keep the most recently scheduled route first.
func RankSimilar(requested []uuid.UUID, candidates []*Route, threshold float64) []SimilarRoute {
	threshold = similarityThreshold(threshold)
	result := make([]SimilarRoute, 0)
	for _, r := range candidates {
		overlap := Overlap(requested, r.CustomerIDs)
		// guard against float drift on exact ratios like 4/5
		if overlap+1e-9 >= threshold {
			result = append(result, SimilarRoute{Route: r, Overlap: overlap})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Overlap != result[j].Overlap {
			return result[i].Overlap > result[j].Overlap
		}
		return result[i].Route.ScheduledDate.After(result[j].Route.ScheduledDate)
	})
	return result
}

// MinSharedStops is the fewest requested customers a route has to visit for its
// overlap to reach threshold. It is at least 1.
func MinSharedStops(requested []uuid.UUID, threshold float64) int {
	n := float64(len(dedupe(requested)))
	return max(int(math.Ceil(similarityThreshold(threshold)*n-1e-9)), 1)
}

func similarityThreshold(threshold float64) float64 {
	if threshold <= 0 || threshold > 1 {
		return DefaultSimilarityThreshold
	}
	return threshold
}

// StopSetKey is a stable key for a customer set regardless of stop order
func StopSetKey(customerIDs []uuid.UUID) string {
	ids := dedupe(customerIDs)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
