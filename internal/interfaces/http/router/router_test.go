package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/distribuidora/backend/internal/interfaces/http/handler"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

// asRole installs the claims and actor the JWT middleware would set for role
func asRole(role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := identity.Actor{UserID: uuid.New(), Username: "tester", Role: role}
		c.Set(middleware.JWTClaimsKey, &auth.Claims{
			UserID:      actor.UserID.String(),
			Role:        string(role),
			Permissions: role.Permissions(),
		})
		c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func serve(engine *gin.Engine, method, path string) int {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.version)
	assert.Equal(t, "/api/v1", r.Prefix())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.Prefix())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	var order []string
	r := NewRouter(engine).Use(func(c *gin.Context) {
		order = append(order, "api")
		c.Next()
	})

	g := NewDomainGroup("ping", "/ping")
	g.GET("", "", func(c *gin.Context) {
		order = append(order, "handler")
		c.String(http.StatusOK, "pong")
	})
	r.Register(g).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/ping"))
	assert.Equal(t, []string{"api", "handler"}, order)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/ping"))
}

func TestDomainGroup_PermissionGuard(t *testing.T) {
	build := func(role identity.Role) *gin.Engine {
		engine := gin.New()
		r := NewRouter(engine).Use(asRole(role))
		orders := NewDomainGroup(identity.ResourceOrder, "/orders")
		orders.GET("", identity.ActionRead, ok)
		orders.POST("/:id/deliver", identity.ActionDeliver, ok)
		orders.POST("/:id/cancel", identity.ActionCancel, ok)
		r.Register(orders).Setup()
		return engine
	}

	driver := build(identity.RoleDriver)
	assert.Equal(t, http.StatusOK, serve(driver, http.MethodGet, "/api/v1/orders"))
	assert.Equal(t, http.StatusOK, serve(driver, http.MethodPost, "/api/v1/orders/1/deliver"))
	assert.Equal(t, http.StatusForbidden, serve(driver, http.MethodPost, "/api/v1/orders/1/cancel"))

	sales := build(identity.RoleSalesRep)
	assert.Equal(t, http.StatusForbidden, serve(sales, http.MethodPost, "/api/v1/orders/1/deliver"))
	assert.Equal(t, http.StatusOK, serve(sales, http.MethodPost, "/api/v1/orders/1/cancel"))

	admin := build(identity.RoleAdmin)
	assert.Equal(t, http.StatusOK, serve(admin, http.MethodPost, "/api/v1/orders/1/deliver"))
}

func TestDomainGroup_SubgroupsAndMiddleware(t *testing.T) {
	engine := gin.New()
	system := NewDomainGroup("system", "/system").Use(func(c *gin.Context) {
		c.Header("X-Group", "system")
		c.Next()
	})
	system.GET("/info", "", ok)
	system.Group("/outbox").GET("/stats", "", ok)
	NewRouter(engine).Register(system).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/outbox/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "system", w.Header().Get("X-Group"))

	assert.Equal(t, []RouteInfo{
		{Method: http.MethodGet, Path: "/system/info"},
		{Method: http.MethodGet, Path: "/system/outbox/stats"},
	}, system.Routes())
}

func allHandlers() Handlers {
	return Handlers{
		Auth:     handler.NewAuthHandler(nil),
		User:     handler.NewUserHandler(nil),
		Customer: handler.NewCustomerHandler(nil),
		Supplier: handler.NewSupplierHandler(nil),
		Product:  handler.NewProductHandler(nil),
		Order:    handler.NewOrderHandler(nil),
		Purchase: handler.NewPurchaseHandler(nil),
		Payment:  handler.NewPaymentHandler(nil),
		Route:    handler.NewRouteHandler(nil),
		Audit:    handler.NewAuditHandler(nil),
		Export:   handler.NewExportHandler(nil),
		Outbox:   handler.NewOutboxHandler(nil),
		System:   handler.NewSystemHandler("test", nil),
	}
}

func routeTable(t *testing.T) map[string]string {
	t.Helper()
	table := make(map[string]string)
	for _, g := range DomainGroups(allHandlers()) {
		for _, info := range g.Routes() {
			key := info.Method + " " + info.Path
			_, dup := table[key]
			require.False(t, dup, "route registered twice: %s", key)
			table[key] = info.Permission
		}
	}
	return table
}

func TestDomainGroups_AgentRoutes(t *testing.T) {
	table := routeTable(t)
	for _, route := range []string{
		"POST /customers",
		"PUT /customers/:id",
		"POST /orders",
		"POST /orders/:id/prepare",
		"POST /orders/:id/dispatch",
		"POST /orders/:id/deliver",
		"POST /orders/:id/cancel",
		"POST /payments",
		"POST /routes",
		"GET /products",
		"POST /auth/login",
	} {
		_, found := table[route]
		assert.True(t, found, "missing route %s", route)
	}
}

func TestDomainGroups_RolePermissions(t *testing.T) {
	table := routeTable(t)
	cases := []struct {
		role    identity.Role
		route   string
		allowed bool
	}{
		{identity.RoleDriver, "POST /orders/:id/deliver", true},
		{identity.RoleDriver, "POST /orders/:id/cancel", false},
		{identity.RoleDriver, "POST /payments", true},
		{identity.RoleDriver, "GET /exports/:kind", false},
		{identity.RoleSalesRep, "POST /customers", true},
		{identity.RoleSalesRep, "POST /products", false},
		{identity.RoleSalesRep, "GET /exports/:kind", true},
		{identity.RoleWarehouse, "POST /orders/:id/prepare", true},
		{identity.RoleWarehouse, "POST /orders/:id/deliver", false},
		{identity.RoleWarehouse, "GET /payments", false},
		{identity.RoleWarehouse, "POST /purchases/:id/receive", true},
		{identity.RoleAdmin, "DELETE /users/:id", true},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+" "+tc.route, func(t *testing.T) {
			permission, found := table[tc.route]
			require.True(t, found)
			require.NotEmpty(t, permission)
			assert.Equal(t, tc.allowed, identity.HasPermission(tc.role.Permissions(), permission))
		})
	}
}

func TestDomainGroups_AdminOnlyGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(asRole(identity.RoleWarehouse))
	RegisterAPI(r, allHandlers())
	r.Setup()

	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/users"))
	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/audit"))
	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/system/outbox/stats"))
	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/payments"))
}

func TestPublicPaths(t *testing.T) {
	paths := PublicPaths("/api/v1")
	assert.Contains(t, paths, "/health")
	assert.Contains(t, paths, "/api/v1/auth/login")
	assert.Contains(t, paths, "/api/v1/auth/refresh")
	assert.NotContains(t, paths, "/api/v1/auth/logout")
}
