package printing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company is the letterhead printed on every document
type Company struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
}

// DeliveryNote is the printable view of an order
type DeliveryNote struct {
	Company       Company
	OrderNumber   string
	Status        string
	IssuedAt      time.Time
	DeliveryDate  *time.Time
	CustomerCode  string
	CustomerName  string
	CustomerTaxID string
	Address       string
	City          string
	Phone         string
	DriverName    string
	Notes         string
	Items         []DeliveryNoteItem
	Total         decimal.Decimal
	Paid          decimal.Decimal
	Outstanding   decimal.Decimal
}

// DeliveryNoteItem is one printed order line
type DeliveryNoteItem struct {
	SKU       string
	Name      string
	Unit      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// RouteSheet is the printable view of a delivery route
type RouteSheet struct {
	Company       Company
	RouteID       uuid.UUID
	Name          string
	Status        string
	ScheduledDate time.Time
	DriverName    string
	DistanceKm    *decimal.Decimal
	Stops         []RouteStop
	PrintedAt     time.Time
}

// RouteStop is one customer visit on a route sheet
type RouteStop struct {
	Sequence     int
	CustomerCode string
	CustomerName string
	Address      string
	City         string
	Phone        string
	OrderNumbers []string
	AmountDue    decimal.Decimal
}

// DocumentPrinter turns document views into PDFs
type DocumentPrinter struct {
	engine   *TemplateEngine
	renderer PDFRenderer
}

// NewDocumentPrinter creates a DocumentPrinter
func NewDocumentPrinter(engine *TemplateEngine, renderer PDFRenderer) *DocumentPrinter {
	return &DocumentPrinter{engine: engine, renderer: renderer}
}

// DeliveryNote renders an order delivery note
func (p *DocumentPrinter) DeliveryNote(ctx context.Context, note DeliveryNote) ([]byte, error) {
	return p.print(ctx, TemplateDeliveryNote, "Remito "+note.OrderNumber, false, note)
}

// RouteSheet renders a route sheet in landscape
func (p *DocumentPrinter) RouteSheet(ctx context.Context, sheet RouteSheet) ([]byte, error) {
	return p.print(ctx, TemplateRouteSheet, "Hoja de ruta "+sheet.Name, true, sheet)
}

func (p *DocumentPrinter) print(ctx context.Context, layout, title string, landscape bool, data any) ([]byte, error) {
	html, err := p.engine.Render(layout, data)
	if err != nil {
		return nil, err
	}
	result, err := p.renderer.Render(ctx, &RenderRequest{HTML: html, Title: title, Landscape: landscape})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}
