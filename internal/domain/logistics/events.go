package logistics

import "github.com/distribuidora/backend/internal/domain/shared"

const (
	AggregateTypeRoute = "Route"

	EventTypeRouteCreated = "route.created"
)

// RouteCreatedEvent is published when a route is planned
type RouteCreatedEvent struct {
	shared.BaseDomainEvent
	Name      string `json:"name"`
	StopCount int    `json:"stop_count"`
}

// NewRouteCreatedEvent creates a new RouteCreatedEvent
func NewRouteCreatedEvent(r *Route) *RouteCreatedEvent {
	return &RouteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRouteCreated, AggregateTypeRoute, r.ID),
		Name:            r.Name,
		StopCount:       len(r.CustomerIDs),
	}
}
