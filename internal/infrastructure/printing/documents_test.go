package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingRenderer struct {
	requests []*RenderRequest
	err      error
}

func (r *capturingRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &RenderResult{PDFData: []byte("%PDF-1.7"), PageCount: 1}, nil
}

func (r *capturingRenderer) Close() error { return nil }

func newTestPrinter(t *testing.T) (*DocumentPrinter, *capturingRenderer) {
	t.Helper()
	engine, err := NewTemplateEngine()
	require.NoError(t, err)
	renderer := &capturingRenderer{}
	return NewDocumentPrinter(engine, renderer), renderer
}

func TestDocumentPrinter_DeliveryNote(t *testing.T) {
	printer, renderer := newTestPrinter(t)
	delivery := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	pdf, err := printer.DeliveryNote(context.Background(), DeliveryNote{
		Company:      Company{Name: "Distribuidora Norte", TaxID: "30-12345678-9"},
		OrderNumber:  "PED-000042",
		Status:       "prepared",
		IssuedAt:     time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC),
		DeliveryDate: &delivery,
		CustomerCode: "C-001",
		CustomerName: "Almacén <Don José>",
		Address:      "Av. Siempre Viva 742",
		City:         "Rosario",
		Items: []DeliveryNoteItem{{
			SKU:       "YER-1KG",
			Name:      "Yerba 1kg",
			Unit:      "unit",
			Quantity:  decimal.NewFromInt(12),
			UnitPrice: decimal.RequireFromString("2500"),
			LineTotal: decimal.RequireFromString("30000"),
		}},
		Total:       decimal.RequireFromString("30000"),
		Paid:        decimal.RequireFromString("10000"),
		Outstanding: decimal.RequireFromString("20000"),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)

	require.Len(t, renderer.requests, 1)
	req := renderer.requests[0]
	assert.False(t, req.Landscape)
	assert.Equal(t, "Remito PED-000042", req.Title)
	assert.Contains(t, req.HTML, "Remito PED-000042")
	assert.Contains(t, req.HTML, "Almacén &lt;Don José&gt;")
	assert.Contains(t, req.HTML, "Entrega: 02/06/2026")
	assert.Contains(t, req.HTML, "Preparado")
	assert.Contains(t, req.HTML, "$ 30,000.00")
	assert.Contains(t, req.HTML, "$ 20,000.00")
	assert.Contains(t, req.HTML, "Sin asignar")
}

func TestDocumentPrinter_RouteSheet(t *testing.T) {
	printer, renderer := newTestPrinter(t)
	distance := decimal.RequireFromString("38.5")

	_, err := printer.RouteSheet(context.Background(), RouteSheet{
		Company:       Company{Name: "Distribuidora Norte"},
		RouteID:       uuid.New(),
		Name:          "Zona Sur martes",
		Status:        "planned",
		ScheduledDate: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		DriverName:    "Marta Gómez",
		DistanceKm:    &distance,
		Stops: []RouteStop{
			{Sequence: 1, CustomerCode: "C-001", CustomerName: "Kiosco Uno", OrderNumbers: []string{"PED-1", "PED-2"}, AmountDue: decimal.NewFromInt(1500)},
			{Sequence: 2, CustomerCode: "C-002", CustomerName: "Kiosco Dos"},
		},
		PrintedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, renderer.requests, 1)
	req := renderer.requests[0]
	assert.True(t, req.Landscape)
	assert.Contains(t, req.HTML, "Zona Sur martes")
	assert.Contains(t, req.HTML, "Marta Gómez")
	assert.Contains(t, req.HTML, "Distancia: 38.5 km")
	assert.Contains(t, req.HTML, "PED-1, PED-2")
	assert.Contains(t, req.HTML, "2 paradas")
}

func TestDocumentPrinter_PropagatesRenderErrors(t *testing.T) {
	printer, renderer := newTestPrinter(t)
	renderer.err = NewRenderError(ErrCodeRenderTimeout, "timed out", errors.New("deadline"))

	_, err := printer.RouteSheet(context.Background(), RouteSheet{Name: "x"})
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeRenderTimeout, re.Code)
}
