package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/distribuidora/backend/internal/application/export"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExportHandler serves CSV listings and PDF documents. Small files stream
// back directly; with object storage configured the response carries a
// temporary download link instead.
type ExportHandler struct {
	BaseHandler
	exportService *export.Service
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportService *export.Service) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

type filterParser func(string) (any, error)

func asString(v string) (any, error) { return v, nil }

func asUUID(v string) (any, error) { return uuid.Parse(v) }

func asBool(v string) (any, error) { return strconv.ParseBool(v) }

func asDate(v string) (any, error) { return time.Parse(time.DateOnly, v) }

// exportFilters lists the query keys each export accepts
var exportFilters = map[string]map[string]filterParser{
	"customers": {"status": asString, "city": asString, "zone": asString},
	"products":  {"status": asString, "unit": asString, "low_stock": asBool},
	"orders":    {"status": asString, "customer_id": asUUID, "driver_id": asUUID, "from": asDate, "to": asDate},
	"payments":  {"direction": asString, "method": asString, "order_id": asUUID, "purchase_id": asUUID, "from": asDate, "to": asDate},
}

// CSV exports /exports/:kind with the same filters as the list endpoint
// @ID           exportCsv
// @Summary      Export a listing as CSV
// @Tags         exports
// @Produce      json,text/csv
// @Param        kind path string true "Listing" Enums(customers, products, orders, payments)
// @Param        search query string false "Search text"
// @Success      200 {object} dto.Response{data=export.File}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /exports/{kind} [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	kind := c.Param("kind")
	parsers, ok := exportFilters[kind]
	if !ok {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, "Unknown export "+kind)
		return
	}
	q := export.Query{Search: c.Query("search"), Filters: map[string]any{}}
	for key, parse := range parsers {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := parse(raw)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid value for "+key)
			return
		}
		q.Filters[key] = v
	}

	ctx := c.Request.Context()
	var (
		file *export.File
		err  error
	)
	switch kind {
	case "customers":
		file, err = h.exportService.Customers(ctx, q)
	case "products":
		file, err = h.exportService.Products(ctx, q)
	case "orders":
		file, err = h.exportService.Orders(ctx, q)
	case "payments":
		file, err = h.exportService.Payments(ctx, q)
	}
	h.send(c, file, err)
}

// DeliveryNote renders the PDF delivery note of an order
// @ID           getDeliveryNote
// @Summary      Delivery note PDF
// @Tags         exports
// @Produce      json,application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=export.File}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/delivery-note [get]
func (h *ExportHandler) DeliveryNote(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	file, err := h.exportService.DeliveryNote(c.Request.Context(), id)
	h.send(c, file, err)
}

// RouteSheet renders the PDF sheet a driver takes on a route
// @ID           getRouteSheet
// @Summary      Route sheet PDF
// @Tags         exports
// @Produce      json,application/pdf
// @Param        id path string true "Route ID" format(uuid)
// @Success      200 {object} dto.Response{data=export.File}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /routes/{id}/sheet [get]
func (h *ExportHandler) RouteSheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	file, err := h.exportService.RouteSheet(c.Request.Context(), id)
	h.send(c, file, err)
}

func (h *ExportHandler) send(c *gin.Context, file *export.File, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if file.Stored() {
		h.Success(c, file)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
