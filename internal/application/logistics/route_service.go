package logistics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCandidateLimit = 50
	defaultPathTTL        = 7 * 24 * time.Hour
)

// RouteService plans delivery routes and finds previously driven ones
type RouteService struct {
	routeRepo    logistics.RouteRepository
	customerRepo partner.CustomerRepository
	paths        logistics.PathCache
	txManager    shared.TransactionManager
	events       shared.EventRecorder
	logger       *zap.Logger
	pathTTL      time.Duration
}

// NewRouteService creates a new RouteService. paths may be nil.
func NewRouteService(
	routeRepo logistics.RouteRepository,
	customerRepo partner.CustomerRepository,
	paths logistics.PathCache,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	logger *zap.Logger,
) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{
		routeRepo:    routeRepo,
		customerRepo: customerRepo,
		paths:        paths,
		txManager:    txManager,
		events:       events,
		logger:       logger,
		pathTTL:      defaultPathTTL,
	}
}

// Create plans a route. When no path is supplied a cached path for the same
// stop set is reused; a supplied path is cached for later routes.
func (s *RouteService) Create(ctx context.Context, req CreateRouteRequest) (*RouteResponse, error) {
	route, err := logistics.NewRoute(req.Name, req.ScheduledDate, req.CustomerIDs)
	if err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.FindByIDs(ctx, route.CustomerIDs)
	if err != nil {
		return nil, err
	}
	if len(customers) != len(route.CustomerIDs) {
		return nil, shared.NewDomainError("NOT_FOUND", "One or more route customers do not exist")
	}

	// drivers plan their own routes only
	if actor, ok := identity.ActorFromContext(ctx); ok && actor.Role == identity.RoleDriver {
		if req.DriverID != nil && *req.DriverID != actor.UserID {
			return nil, shared.ErrForbidden
		}
		req.DriverID = &actor.UserID
	}
	if req.DriverID != nil {
		if err := route.AssignDriver(*req.DriverID); err != nil {
			return nil, err
		}
	}

	key := PathKey(route.CustomerIDs)
	switch {
	case len(req.OptimizedPath) > 0:
		distance := route.DistanceKm
		if req.DistanceKm != nil {
			distance = *req.DistanceKm
		}
		if err := route.SetOptimizedPath(req.OptimizedPath, distance); err != nil {
			return nil, err
		}
		s.cachePath(ctx, key, route.OptimizedPath)
	default:
		if path, ok := s.cachedPath(ctx, key); ok {
			if err := route.SetOptimizedPath(path, route.DistanceKm); err != nil {
				return nil, err
			}
		}
	}

	if actor, ok := identity.ActorFromContext(ctx); ok {
		route.SetCreatedBy(actor.UserID)
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.routeRepo.Save(ctx, route); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, route)
	})
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// GetByID retrieves a route within the caller's row scope
func (s *RouteService) GetByID(ctx context.Context, id uuid.UUID) (*RouteResponse, error) {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// List retrieves routes visible to the caller
func (s *RouteService) List(ctx context.Context, filter RouteListFilter) (shared.Paginated[RouteResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalize("scheduled_date")
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.DriverID != nil {
		domainFilter.Filters["driver_id"] = *filter.DriverID
	}
	if filter.Date != nil {
		domainFilter.Filters["date"] = *filter.Date
	}

	routes, err := s.routeRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[RouteResponse]{}, err
	}
	total, err := s.routeRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[RouteResponse]{}, err
	}
	items := make([]RouteResponse, len(routes))
	for i := range routes {
		items[i] = ToRouteResponse(&routes[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// AssignDriver assigns the driver of a planned route
func (s *RouteService) AssignDriver(ctx context.Context, id uuid.UUID, req AssignRouteDriverRequest) (*RouteResponse, error) {
	return s.mutate(ctx, id, func(r *logistics.Route) error {
		return r.AssignDriver(req.DriverID)
	})
}

// SetOptimizedPath stores the client-computed path on the route and in the path cache
func (s *RouteService) SetOptimizedPath(ctx context.Context, id uuid.UUID, req SetPathRequest) (*RouteResponse, error) {
	resp, err := s.mutate(ctx, id, func(r *logistics.Route) error {
		return r.SetOptimizedPath(req.OptimizedPath, req.DistanceKm)
	})
	if err != nil {
		return nil, err
	}
	s.cachePath(ctx, PathKey(resp.CustomerIDs), resp.OptimizedPath)
	return resp, nil
}

// Start marks the route active
func (s *RouteService) Start(ctx context.Context, id uuid.UUID) (*RouteResponse, error) {
	return s.mutate(ctx, id, (*logistics.Route).Start)
}

// Complete marks the route completed
func (s *RouteService) Complete(ctx context.Context, id uuid.UUID) (*RouteResponse, error) {
	return s.mutate(ctx, id, (*logistics.Route).Complete)
}

// Delete removes a route that has not started
func (s *RouteService) Delete(ctx context.Context, id uuid.UUID) error {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if route.Status != logistics.RouteStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "Only planned routes can be deleted")
	}
	return s.routeRepo.Delete(ctx, id)
}

// FindSimilar returns stored routes whose stops cover at least threshold of
// the requested customers, best overlap first. A zero threshold means 0.8.
func (s *RouteService) FindSimilar(ctx context.Context, req SimilarRoutesRequest) ([]SimilarRouteResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	minShared := logistics.MinSharedStops(req.CustomerIDs, req.Threshold)
	candidates, err := s.routeRepo.FindCandidates(ctx, req.CustomerIDs, minShared, limit)
	if err != nil {
		return nil, err
	}
	ranked := logistics.RankSimilar(req.CustomerIDs, candidates, req.Threshold)
	out := make([]SimilarRouteResponse, len(ranked))
	for i, sr := range ranked {
		out[i] = SimilarRouteResponse{Route: ToRouteResponse(sr.Route), Overlap: sr.Overlap}
	}
	return out, nil
}

// CachedPath returns the cached optimized path for a stop set
func (s *RouteService) CachedPath(ctx context.Context, customerIDs []uuid.UUID) (*CachedPathResponse, error) {
	key := PathKey(customerIDs)
	path, ok := s.cachedPath(ctx, key)
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &CachedPathResponse{Key: key, OptimizedPath: path}, nil
}

func (s *RouteService) mutate(ctx context.Context, id uuid.UUID, fn func(*logistics.Route) error) (*RouteResponse, error) {
	var route *logistics.Route
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		route, err = s.routeRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(route); err != nil {
			return err
		}
		if err := s.routeRepo.Save(ctx, route); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, route)
	})
	if err != nil {
		return nil, err
	}
	response := ToRouteResponse(route)
	return &response, nil
}

// cachePath logs and drops cache errors
func (s *RouteService) cachePath(ctx context.Context, key string, path json.RawMessage) {
	if s.paths == nil || len(path) == 0 {
		return
	}
	if err := s.paths.Put(ctx, key, path, s.pathTTL); err != nil {
		s.logger.Warn("failed to cache route path", zap.String("key", key), zap.Error(err))
	}
}

func (s *RouteService) cachedPath(ctx context.Context, key string) (json.RawMessage, bool) {
	if s.paths == nil {
		return nil, false
	}
	path, ok, err := s.paths.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read cached route path", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return path, ok
}

// PathKey hashes the sorted stop set into a fixed-length cache key
func PathKey(customerIDs []uuid.UUID) string {
	sum := sha256.Sum256([]byte(logistics.StopSetKey(customerIDs)))
	return hex.EncodeToString(sum[:])
}
