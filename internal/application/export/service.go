package export

import (
	"context"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/distribuidora/backend/internal/infrastructure/printing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	contentTypeCSV = "text/csv; charset=utf-8"
	contentTypePDF = "application/pdf"

	batchSize = 500
)

// DocumentRenderer turns printable views into PDF bytes
type DocumentRenderer interface {
	DeliveryNote(ctx context.Context, note printing.DeliveryNote) ([]byte, error)
	RouteSheet(ctx context.Context, sheet printing.RouteSheet) ([]byte, error)
}

// ObjectStore keeps generated files and hands out temporary download links
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Sources are the repositories exports read from. Reads go through the
// caller's row scope like any other listing.
type Sources struct {
	Customers partner.CustomerRepository
	Products  catalog.ProductRepository
	Orders    trade.OrderRepository
	Payments  finance.PaymentRepository
	Routes    logistics.RouteRepository
	Users     identity.UserRepository
}

// Config tunes exports
type Config struct {
	MaxRows   int
	URLExpiry time.Duration
	Company   printing.Company
}

// Service builds CSV and PDF exports
type Service struct {
	src       Sources
	documents DocumentRenderer
	store     ObjectStore
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an export Service. documents may be nil when PDF export
// is disabled; store may be nil to stream files back directly.
func NewService(src Sources, documents DocumentRenderer, store ObjectStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50000
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}
	return &Service{src: src, documents: documents, store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Customers exports customers as CSV
func (s *Service) Customers(ctx context.Context, q Query) (*File, error) {
	rows, err := collect(ctx, s, q, "name", s.src.Customers.Count, s.src.Customers.FindAll)
	if err != nil {
		return nil, err
	}
	t := newCSVTable("code", "name", "tax_id", "contact_name", "phone", "email", "address", "city", "zone", "credit_limit", "status", "created_at")
	for _, c := range rows {
		t.row(c.Code, c.Name, c.TaxID, c.ContactName, c.Phone, c.Email, c.Address, c.City, c.Zone,
			c.CreditLimit.StringFixed(2), string(c.Status), formatTimestamp(c.CreatedAt))
	}
	return s.finishCSV(ctx, "customers", t)
}

// Products exports products as CSV
func (s *Service) Products(ctx context.Context, q Query) (*File, error) {
	rows, err := collect(ctx, s, q, "name", s.src.Products.Count, s.src.Products.FindAll)
	if err != nil {
		return nil, err
	}
	t := newCSVTable("sku", "name", "unit", "price", "cost", "stock", "min_stock", "low_stock", "status")
	for _, p := range rows {
		t.row(p.SKU, p.Name, p.Unit, p.Price.StringFixed(2), p.Cost.StringFixed(2), p.Stock.String(),
			p.MinStock.String(), fmt.Sprint(p.IsLowStock()), string(p.Status))
	}
	return s.finishCSV(ctx, "products", t)
}

// Orders exports order headers as CSV
func (s *Service) Orders(ctx context.Context, q Query) (*File, error) {
	rows, err := collect(ctx, s, q, "created_at", s.src.Orders.Count, s.src.Orders.FindAll)
	if err != nil {
		return nil, err
	}
	t := newCSVTable("order_number", "customer", "status", "total", "assigned_driver_id", "delivery_date", "created_at", "delivered_at", "cancel_reason")
	for _, o := range rows {
		t.row(o.OrderNumber, o.CustomerName, string(o.Status), o.TotalAmount.StringFixed(2),
			optionalID(o.AssignedDriverID), formatDay(o.DeliveryDate), formatTimestamp(o.CreatedAt),
			formatOptional(o.DeliveredAt), o.CancelReason)
	}
	return s.finishCSV(ctx, "orders", t)
}

// Payments exports payments as CSV
func (s *Service) Payments(ctx context.Context, q Query) (*File, error) {
	rows, err := collect(ctx, s, q, "paid_at", s.src.Payments.Count, s.src.Payments.FindAll)
	if err != nil {
		return nil, err
	}
	t := newCSVTable("id", "direction", "order_id", "purchase_id", "method", "amount", "reference", "paid_at", "recorded_by")
	for _, p := range rows {
		t.row(p.ID.String(), string(p.Direction), optionalID(p.OrderID), optionalID(p.PurchaseID),
			string(p.Method), p.Amount.StringFixed(2), p.Reference, formatTimestamp(p.PaidAt), optionalID(p.CreatedBy))
	}
	return s.finishCSV(ctx, "payments", t)
}

// DeliveryNote renders the delivery note of an order as PDF
func (s *Service) DeliveryNote(ctx context.Context, orderID uuid.UUID) (*File, error) {
	if s.documents == nil {
		return nil, errPDFDisabled
	}
	order, err := s.src.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	customer, err := s.src.Customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	paid, err := s.src.Payments.SumByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	units, err := s.productUnits(ctx, order.Items)
	if err != nil {
		return nil, err
	}
	balance := finance.NewBalance(order.TotalAmount, paid)

	note := printing.DeliveryNote{
		Company:       s.cfg.Company,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		IssuedAt:      s.now(),
		DeliveryDate:  order.DeliveryDate,
		CustomerCode:  customer.Code,
		CustomerName:  customer.Name,
		CustomerTaxID: customer.TaxID,
		Address:       customer.Address,
		City:          customer.City,
		Phone:         customer.Phone,
		DriverName:    s.userName(ctx, order.AssignedDriverID),
		Notes:         order.Notes,
		Total:         balance.Total,
		Paid:          balance.Paid,
		Outstanding:   balance.Outstanding,
	}
	for _, item := range order.Items {
		note.Items = append(note.Items, printing.DeliveryNoteItem{
			SKU:       item.ProductSKU,
			Name:      item.ProductName,
			Unit:      units[item.ProductID],
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.Amount,
		})
	}

	data, err := s.documents.DeliveryNote(ctx, note)
	if err != nil {
		s.logger.Error("delivery note rendering failed", zap.String("order", order.OrderNumber), zap.Error(err))
		return nil, err
	}
	return s.finish(ctx, "remito-"+order.OrderNumber+".pdf", contentTypePDF, data)
}

// RouteSheet renders a route with its stops and open orders as PDF
func (s *Service) RouteSheet(ctx context.Context, routeID uuid.UUID) (*File, error) {
	if s.documents == nil {
		return nil, errPDFDisabled
	}
	route, err := s.src.Routes.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	customers, err := s.src.Customers.FindByIDs(ctx, route.CustomerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]partner.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	sheet := printing.RouteSheet{
		Company:       s.cfg.Company,
		RouteID:       route.ID,
		Name:          route.Name,
		Status:        string(route.Status),
		ScheduledDate: route.ScheduledDate,
		DriverName:    s.userName(ctx, route.DriverID),
		PrintedAt:     s.now(),
	}
	if route.DistanceKm.IsPositive() {
		distance := route.DistanceKm
		sheet.DistanceKm = &distance
	}
	for i, customerID := range route.CustomerIDs {
		stop := printing.RouteStop{Sequence: i + 1}
		if c, ok := byID[customerID]; ok {
			stop.CustomerCode = c.Code
			stop.CustomerName = c.Name
			stop.Address = c.Address
			stop.City = c.City
			stop.Phone = c.Phone
		}
		if err := s.fillOpenOrders(ctx, &stop, customerID, route.DriverID); err != nil {
			return nil, err
		}
		sheet.Stops = append(sheet.Stops, stop)
	}

	data, err := s.documents.RouteSheet(ctx, sheet)
	if err != nil {
		s.logger.Error("route sheet rendering failed", zap.String("route_id", route.ID.String()), zap.Error(err))
		return nil, err
	}
	return s.finish(ctx, "hoja-de-ruta-"+route.ScheduledDate.Format("20060102")+"-"+route.ID.String()[:8]+".pdf", contentTypePDF, data)
}

// fillOpenOrders adds the undelivered orders of a stop and what is left to collect
func (s *Service) fillOpenOrders(ctx context.Context, stop *printing.RouteStop, customerID uuid.UUID, driverID *uuid.UUID) error {
	filter := shared.Filter{PageSize: 50, OrderBy: "created_at", OrderDir: "asc", Filters: map[string]any{"customer_id": customerID.String()}}.Normalize("created_at")
	if driverID != nil {
		filter.Filters["driver_id"] = driverID.String()
	}
	orders, err := s.src.Orders.FindAll(ctx, filter)
	if err != nil {
		return err
	}
	due := decimal.Zero
	for _, o := range orders {
		if o.Status != trade.OrderStatusPrepared && o.Status != trade.OrderStatusInTransit {
			continue
		}
		paid, err := s.src.Payments.SumByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		stop.OrderNumbers = append(stop.OrderNumbers, o.OrderNumber)
		if outstanding := o.TotalAmount.Sub(paid); outstanding.IsPositive() {
			due = due.Add(outstanding)
		}
	}
	stop.AmountDue = due
	return nil
}

func (s *Service) productUnits(ctx context.Context, items []trade.OrderItem) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	products, err := s.src.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	units := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		units[p.ID] = p.Unit
	}
	return units, nil
}

// userName resolves a user for printing; lookup failures print as unassigned
func (s *Service) userName(ctx context.Context, id *uuid.UUID) string {
	if id == nil || s.src.Users == nil {
		return ""
	}
	user, err := s.src.Users.FindByID(ctx, *id)
	if err != nil {
		s.logger.Warn("user lookup for export failed", zap.String("user_id", id.String()), zap.Error(err))
		return ""
	}
	return user.FullName
}

func (s *Service) finishCSV(ctx context.Context, kind string, t *csvTable) (*File, error) {
	data, err := t.bytes()
	if err != nil {
		return nil, fmt.Errorf("encode %s csv: %w", kind, err)
	}
	return s.finish(ctx, kind+"-"+s.now().Format("20060102-150405")+".csv", contentTypeCSV, data)
}

// finish uploads the file when object storage is configured, otherwise
// returns the bytes for direct download
func (s *Service) finish(ctx context.Context, name, contentType string, data []byte) (*File, error) {
	file := &File{Name: name, ContentType: contentType, Size: len(data)}
	if s.store == nil {
		file.Data = data
		return file, nil
	}

	key := path.Join("exports", s.now().Format("2006/01/02"), uuid.NewString()+"-"+name)
	if err := s.store.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, expiresAt, err := s.store.DownloadURL(ctx, key, s.cfg.URLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	file.Key = key
	file.URL = url
	file.ExpiresAt = &expiresAt
	s.logger.Info("export stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return file, nil
}

// collect pages through a listing, refusing exports over MaxRows
func collect[T any](
	ctx context.Context,
	s *Service,
	q Query,
	orderBy string,
	count func(context.Context, shared.Filter) (int64, error),
	find func(context.Context, shared.Filter) ([]T, error),
) ([]T, error) {
	filter := q.filter(orderBy)
	total, err := count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total > int64(s.cfg.MaxRows) {
		return nil, shared.NewDomainError("EXPORT_TOO_LARGE",
			fmt.Sprintf("Export has %d rows, the limit is %d. Narrow the filter", total, s.cfg.MaxRows))
	}

	rows := make([]T, 0, total)
	filter.PageSize = batchSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, err := find(ctx, filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < batchSize {
			return rows, nil
		}
	}
}
