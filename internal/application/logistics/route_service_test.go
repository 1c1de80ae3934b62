package logistics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/application/apptest"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRouteRepository struct {
	mock.Mock
}

func (m *mockRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*logistics.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.Route), args.Error(1)
}

func (m *mockRouteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]logistics.Route, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]logistics.Route), args.Error(1)
}

func (m *mockRouteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRouteRepository) FindCandidates(ctx context.Context, ids []uuid.UUID, minShared, limit int) ([]*logistics.Route, error) {
	args := m.Called(ctx, ids, minShared, limit)
	return args.Get(0).([]*logistics.Route), args.Error(1)
}

func (m *mockRouteRepository) Save(ctx context.Context, route *logistics.Route) error {
	return m.Called(ctx, route).Error(0)
}

func (m *mockRouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockCustomerRepository struct {
	mock.Mock
	partner.CustomerRepository
}

func (m *mockCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Customer, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

// mapPathCache is a map-backed logistics.PathCache
type mapPathCache struct {
	paths map[string]json.RawMessage
	err   error
}

func (c *mapPathCache) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.paths[key]
	return p, ok, nil
}

func (c *mapPathCache) Put(_ context.Context, key string, path json.RawMessage, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.paths[key] = path
	return nil
}

type routeFixture struct {
	svc       *RouteService
	routes    *mockRouteRepository
	customers *mockCustomerRepository
	paths     *mapPathCache
	rec       *apptest.Recorder
}

func newRouteFixture() *routeFixture {
	f := &routeFixture{
		routes:    new(mockRouteRepository),
		customers: new(mockCustomerRepository),
		paths:     &mapPathCache{paths: map[string]json.RawMessage{}},
		rec:       &apptest.Recorder{},
	}
	f.svc = NewRouteService(f.routes, f.customers, f.paths, &apptest.TxManager{}, f.rec, nil)
	return f
}

func customerIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func customersFor(ids []uuid.UUID) []partner.Customer {
	out := make([]partner.Customer, len(ids))
	for i, id := range ids {
		out[i] = partner.Customer{Name: "c"}
		out[i].ID = id
	}
	return out
}

func storedRoute(t *testing.T, name string, stops []uuid.UUID, date time.Time) *logistics.Route {
	t.Helper()
	r, err := logistics.NewRoute(name, date, stops)
	require.NoError(t, err)
	r.ClearDomainEvents()
	r.MarkPersisted()
	return r
}

func TestRouteService_Create_CachesSuppliedPath(t *testing.T) {
	f := newRouteFixture()
	ctx, actor := apptest.ActorContext(identity.RoleDriver)
	stops := customerIDs(3)
	path := json.RawMessage(`{"order":[2,0,1]}`)
	km := decimal.RequireFromString("12.345")

	f.customers.On("FindByIDs", mock.Anything, stops).Return(customersFor(stops), nil)
	f.routes.On("Save", mock.Anything, mock.AnythingOfType("*logistics.Route")).Return(nil)

	resp, err := f.svc.Create(ctx, CreateRouteRequest{
		Name:          "Zona Norte martes",
		ScheduledDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		CustomerIDs:   stops,
		DriverID:      &actor.UserID,
		OptimizedPath: path,
		DistanceKm:    &km,
	})
	require.NoError(t, err)
	assert.Equal(t, "planned", resp.Status)
	assert.Equal(t, "12.35", resp.DistanceKm.StringFixed(2))
	assert.JSONEq(t, string(path), string(f.paths.paths[PathKey(stops)]))
	assert.Equal(t, []string{logistics.EventTypeRouteCreated}, f.rec.Types())
}

func TestRouteService_Create_ReusesCachedPath(t *testing.T) {
	f := newRouteFixture()
	stops := customerIDs(2)
	reversed := []uuid.UUID{stops[1], stops[0]}
	f.paths.paths[PathKey(stops)] = json.RawMessage(`{"order":[1,0]}`)

	f.customers.On("FindByIDs", mock.Anything, reversed).Return(customersFor(reversed), nil)
	f.routes.On("Save", mock.Anything, mock.AnythingOfType("*logistics.Route")).Return(nil)

	resp, err := f.svc.Create(context.Background(), CreateRouteRequest{
		Name:          "Centro",
		ScheduledDate: time.Now(),
		CustomerIDs:   reversed,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"order":[1,0]}`, string(resp.OptimizedPath))
}

func TestRouteService_Create_CacheErrorsAreIgnored(t *testing.T) {
	f := newRouteFixture()
	f.paths.err = errors.New("redis down")
	stops := customerIDs(1)
	f.customers.On("FindByIDs", mock.Anything, stops).Return(customersFor(stops), nil)
	f.routes.On("Save", mock.Anything, mock.AnythingOfType("*logistics.Route")).Return(nil)

	resp, err := f.svc.Create(context.Background(), CreateRouteRequest{
		Name: "Sur", ScheduledDate: time.Now(), CustomerIDs: stops, OptimizedPath: json.RawMessage(`[]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sur", resp.Name)
}

func TestRouteService_Create_UnknownCustomer(t *testing.T) {
	f := newRouteFixture()
	stops := customerIDs(2)
	f.customers.On("FindByIDs", mock.Anything, stops).Return(customersFor(stops[:1]), nil)

	_, err := f.svc.Create(context.Background(), CreateRouteRequest{Name: "X", ScheduledDate: time.Now(), CustomerIDs: stops})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.routes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRouteService_Create_DriverPlansOwnRoutes(t *testing.T) {
	f := newRouteFixture()
	ctx, actor := apptest.ActorContext(identity.RoleDriver)
	stops := customerIDs(2)
	f.customers.On("FindByIDs", mock.Anything, stops).Return(customersFor(stops), nil)
	f.routes.On("Save", mock.Anything, mock.AnythingOfType("*logistics.Route")).Return(nil)

	resp, err := f.svc.Create(ctx, CreateRouteRequest{Name: "Oeste", ScheduledDate: time.Now(), CustomerIDs: stops})
	require.NoError(t, err)
	require.NotNil(t, resp.DriverID)
	assert.Equal(t, actor.UserID, *resp.DriverID)

	other := uuid.New()
	_, err = f.svc.Create(ctx, CreateRouteRequest{Name: "Oeste", ScheduledDate: time.Now(), CustomerIDs: stops, DriverID: &other})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRouteService_FindSimilar_Threshold(t *testing.T) {
	f := newRouteFixture()
	requested := customerIDs(5)
	now := time.Now()

	fourOfFive := storedRoute(t, "cuatro", append(append([]uuid.UUID{}, requested[:4]...), uuid.New()), now)
	oneOfFive := storedRoute(t, "uno", []uuid.UUID{requested[0], uuid.New(), uuid.New()}, now)
	allFive := storedRoute(t, "todos", requested, now.Add(-24*time.Hour))

	f.routes.On("FindCandidates", mock.Anything, requested, 4, defaultCandidateLimit).
		Return([]*logistics.Route{oneOfFive, fourOfFive, allFive}, nil)

	similar, err := f.svc.FindSimilar(context.Background(), SimilarRoutesRequest{CustomerIDs: requested})
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, "todos", similar[0].Route.Name)
	assert.InDelta(t, 1.0, similar[0].Overlap, 1e-9)
	assert.Equal(t, "cuatro", similar[1].Route.Name)
	assert.InDelta(t, 0.8, similar[1].Overlap, 1e-9)
}

func TestRouteService_FindSimilar_CustomThreshold(t *testing.T) {
	f := newRouteFixture()
	requested := customerIDs(5)
	oneOfFive := storedRoute(t, "uno", []uuid.UUID{requested[0]}, time.Now())
	f.routes.On("FindCandidates", mock.Anything, requested, 1, 10).Return([]*logistics.Route{oneOfFive}, nil)

	similar, err := f.svc.FindSimilar(context.Background(), SimilarRoutesRequest{CustomerIDs: requested, Threshold: 0.2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.InDelta(t, 0.2, similar[0].Overlap, 1e-9)
}

func TestRouteService_Lifecycle(t *testing.T) {
	f := newRouteFixture()
	route := storedRoute(t, "Norte", customerIDs(2), time.Now())
	driver := uuid.New()
	f.routes.On("FindByID", mock.Anything, route.ID).Return(route, nil)
	f.routes.On("Save", mock.Anything, route).Return(nil)

	_, err := f.svc.Start(context.Background(), route.ID)
	require.Error(t, err)

	_, err = f.svc.AssignDriver(context.Background(), route.ID, AssignRouteDriverRequest{DriverID: driver})
	require.NoError(t, err)

	resp, err := f.svc.SetOptimizedPath(context.Background(), route.ID, SetPathRequest{
		OptimizedPath: json.RawMessage(`{"order":[0,1]}`), DistanceKm: decimal.NewFromInt(8),
	})
	require.NoError(t, err)
	assert.Contains(t, f.paths.paths, PathKey(resp.CustomerIDs))

	resp, err = f.svc.Start(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Status)

	err = f.svc.Delete(context.Background(), route.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	resp, err = f.svc.Complete(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
}

func TestRouteService_CachedPath(t *testing.T) {
	f := newRouteFixture()
	stops := customerIDs(3)

	_, err := f.svc.CachedPath(context.Background(), stops)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	f.paths.paths[PathKey(stops)] = json.RawMessage(`[1]`)
	got, err := f.svc.CachedPath(context.Background(), []uuid.UUID{stops[2], stops[0], stops[1], stops[0]})
	require.NoError(t, err)
	assert.Equal(t, PathKey(stops), got.Key)
	assert.Len(t, got.Key, 64)
}
