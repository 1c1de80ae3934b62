package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/distribuidora/backend/internal/application/export"
	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportProducts struct {
	catalog.ProductRepository
	rows    []catalog.Product
	filters []shared.Filter
}

func (f *exportProducts) Count(_ context.Context, filter shared.Filter) (int64, error) {
	f.filters = append(f.filters, filter)
	return int64(len(f.rows)), nil
}

func (f *exportProducts) FindAll(_ context.Context, filter shared.Filter) ([]catalog.Product, error) {
	if filter.Page > 1 {
		return nil, nil
	}
	return f.rows, nil
}

func newExportRouter(t *testing.T) (*exportProducts, *ExportHandler) {
	t.Helper()
	p, err := catalog.NewProduct("FID-500", "Fideos 500g", "paquete", decimal.NewFromInt(900))
	require.NoError(t, err)
	products := &exportProducts{rows: []catalog.Product{*p}}
	svc := export.NewService(export.Sources{Products: products}, nil, nil, export.Config{}, nil)
	return products, NewExportHandler(svc)
}

func TestExportHandler_CSVStreams(t *testing.T) {
	products, h := newExportRouter(t)
	r, _ := testRouter(identity.RoleWarehouse)
	r.GET("/exports/:kind", h.CSV)

	w := do(r, http.MethodGet, "/exports/products?low_stock=true&status=active", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "FID-500")

	require.NotEmpty(t, products.filters)
	assert.Equal(t, true, products.filters[0].Filters["low_stock"])
	assert.Equal(t, "active", products.filters[0].Filters["status"])
}

func TestExportHandler_CSVRejections(t *testing.T) {
	_, h := newExportRouter(t)
	r, _ := testRouter(identity.RoleAdmin)
	r.GET("/exports/:kind", h.CSV)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/exports/invoices", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/exports/products?low_stock=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/exports/orders?from=yesterday", "").Code)
}

func TestExportHandler_PDFDisabled(t *testing.T) {
	_, h := newExportRouter(t)
	r, _ := testRouter(identity.RoleAdmin)
	r.GET("/orders/:id/delivery-note", h.DeliveryNote)

	w := do(r, http.MethodGet, "/orders/"+uuid.NewString()+"/delivery-note", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "PDF_DISABLED", decode(t, w).Error.Code)
}
