package router

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version> behind shared middleware
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.version = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

func (r *Router) Prefix() string { return "/api/" + r.version }

// Setup attaches everything registered so far to the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix(), r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// DomainGroup is the route table of one resource. A route declared with an
// action is wrapped in RequirePermission(resource, action); an empty action
// leaves it to the group's own middleware.
type DomainGroup struct {
	prefix     string
	resource   string
	routes     []route
	children   []*DomainGroup
	middleware []gin.HandlerFunc
}

type route struct {
	method, path, resource, action string
	handlers                       []gin.HandlerFunc
}

// RouteInfo is a route as listed by Routes, its path relative to the API prefix
type RouteInfo struct {
	Method     string
	Path       string
	Permission string
}

// NewDomainGroup uses resource as the permission resource of its routes
func NewDomainGroup(resource, prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix, resource: resource}
}

func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, mw...)
	return dg
}

func (dg *DomainGroup) handle(method, path, action string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, resource: dg.resource, action: action, handlers: handlers})
	return dg
}

func (dg *DomainGroup) GET(path, action string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, action, h)
}

func (dg *DomainGroup) POST(path, action string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, action, h)
}

func (dg *DomainGroup) PUT(path, action string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, action, h)
}

func (dg *DomainGroup) PATCH(path, action string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, action, h)
}

func (dg *DomainGroup) DELETE(path, action string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, action, h)
}

// Group nests a group under this one; it inherits the resource and, at
// request time, the parent's middleware
func (dg *DomainGroup) Group(prefix string) *DomainGroup {
	child := NewDomainGroup(dg.resource, prefix)
	dg.children = append(dg.children, child)
	return child
}

func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		handlers := rt.handlers
		if rt.action != "" {
			handlers = append([]gin.HandlerFunc{middleware.RequirePermission(rt.resource, rt.action)}, handlers...)
		}
		group.Handle(rt.method, rt.path, handlers...)
	}
	for _, child := range dg.children {
		child.RegisterRoutes(group)
	}
}

// Routes lists every route of the group and its children sorted by path,
// then method
func (dg *DomainGroup) Routes() []RouteInfo {
	var out []RouteInfo
	for _, rt := range dg.routes {
		info := RouteInfo{Method: rt.method, Path: dg.prefix + rt.path}
		if rt.action != "" {
			info.Permission = identity.Permission(rt.resource, rt.action)
		}
		out = append(out, info)
	}
	for _, child := range dg.children {
		for _, info := range child.Routes() {
			info.Path = dg.prefix + info.Path
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b RouteInfo) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
	return out
}
