package handler

import (
	"strings"

	logisticsapp "github.com/distribuidora/backend/internal/application/logistics"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteHandler handles delivery route endpoints
type RouteHandler struct {
	BaseHandler
	routeService *logisticsapp.RouteService
}

// NewRouteHandler creates a new RouteHandler
func NewRouteHandler(routeService *logisticsapp.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// Create plans a route, reusing a cached path for the same stops
// @ID           createRoute
// @Summary      Plan a route
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        request body logisticsapp.CreateRouteRequest true "Route"
// @Success      201 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes [post]
func (h *RouteHandler) Create(c *gin.Context) {
	var req logisticsapp.CreateRouteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	route, err := h.routeService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, route)
}

// List returns routes in the caller's row scope
// @ID           listRoutes
// @Summary      List routes
// @Tags         routes
// @Produce      json
// @Param        filter query logisticsapp.RouteListFilter false "Filters"
// @Param        driver_id query string false "Driver ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]logisticsapp.RouteResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes [get]
func (h *RouteHandler) List(c *gin.Context) {
	var filter logisticsapp.RouteListFilter
	if !h.bindQuery(c, &filter) || !h.queryUUID(c, "driver_id", &filter.DriverID) {
		return
	}
	page, err := h.routeService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// GetByID returns one route
// @ID           getRouteById
// @Summary      Get a route
// @Tags         routes
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Success      200 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id} [get]
func (h *RouteHandler) GetByID(c *gin.Context) {
	byID(&h.BaseHandler, c, h.routeService.GetByID)
}

// AssignDriver sets the route driver
// @ID           assignRouteDriver
// @Summary      Assign the route driver
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Param        request body logisticsapp.AssignRouteDriverRequest true "Driver"
// @Success      200 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id}/assign [post]
func (h *RouteHandler) AssignDriver(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req logisticsapp.AssignRouteDriverRequest
	if !h.bindJSON(c, &req) {
		return
	}
	route, err := h.routeService.AssignDriver(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

// SetPath stores a client-computed optimized path
// @ID           setRoutePath
// @Summary      Store an optimized path
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Param        request body logisticsapp.SetPathRequest true "Ordered stops"
// @Success      200 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id}/path [put]
func (h *RouteHandler) SetPath(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req logisticsapp.SetPathRequest
	if !h.bindJSON(c, &req) {
		return
	}
	route, err := h.routeService.SetOptimizedPath(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

// Start marks the route active
// @ID           startRoute
// @Summary      Start a route
// @Tags         routes
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Success      200 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id}/start [post]
func (h *RouteHandler) Start(c *gin.Context) {
	byID(&h.BaseHandler, c, h.routeService.Start)
}

// Complete marks the route completed
// @ID           completeRoute
// @Summary      Complete a route
// @Tags         routes
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Success      200 {object} dto.Response{data=logisticsapp.RouteResponse}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id}/complete [post]
func (h *RouteHandler) Complete(c *gin.Context) {
	byID(&h.BaseHandler, c, h.routeService.Complete)
}

// Delete removes a planned route
// @ID           deleteRoute
// @Summary      Delete a planned route
// @Tags         routes
// @Produce      json
// @Param        id path string true "Route ID" format(uuid)
// @Success      204
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id} [delete]
func (h *RouteHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.routeService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Similar finds stored routes covering most of the requested stops
// @ID           findSimilarRoutes
// @Summary      Find routes sharing most requested stops
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        request body logisticsapp.SimilarRoutesRequest true "Requested stops and threshold"
// @Success      200 {object} dto.Response{data=[]logisticsapp.SimilarRouteResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/similar [post]
func (h *RouteHandler) Similar(c *gin.Context) {
	var req logisticsapp.SimilarRoutesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	routes, err := h.routeService.FindSimilar(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, routes)
}

// CachedPath returns the cached path for ?customer_ids=a,b,c
// @ID           getCachedRoutePath
// @Summary      Cached path for a stop set
// @Tags         routes
// @Produce      json
// @Param        customer_ids query string true "Comma separated customer IDs"
// @Success      200 {object} dto.Response{data=logisticsapp.CachedPathResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/cached-path [get]
func (h *RouteHandler) CachedPath(c *gin.Context) {
	raw := strings.Split(c.Query("customer_ids"), ",")
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeValidation, "customer_ids must be a comma separated list of UUIDs")
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "customer_ids is required")
		return
	}
	path, err := h.routeService.CachedPath(c.Request.Context(), ids)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, path)
}
