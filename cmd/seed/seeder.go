package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	catalogapp "github.com/distribuidora/backend/internal/application/catalog"
	financeapp "github.com/distribuidora/backend/internal/application/finance"
	logisticsapp "github.com/distribuidora/backend/internal/application/logistics"
	partnerapp "github.com/distribuidora/backend/internal/application/partner"
	tradeapp "github.com/distribuidora/backend/internal/application/trade"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errAlreadySeeded = errors.New("admin user already exists")

const adminUsername = "admin"

type options struct {
	Customers int
	Products  int
	Suppliers int
	Orders    int
	Routes    int
	Seed      uint64
	Password  string
}

// noEvents drops domain events; seeded rows should not flood the outbox
type noEvents struct{}

func (noEvents) Record(context.Context, ...shared.DomainEvent) error { return nil }

type seeder struct {
	faker *gofakeit.Faker
	opts  options
	log   *zap.Logger

	users     *persistence.GormUserRepository
	products  *catalogapp.ProductService
	customers *partnerapp.CustomerService
	suppliers *partnerapp.SupplierService
	orders    *tradeapp.OrderService
	purchases *tradeapp.PurchaseService
	payments  *financeapp.PaymentService
	routes    *logisticsapp.RouteService

	staff       []*identity.User
	productIDs  []uuid.UUID
	customerIDs []uuid.UUID
	supplierIDs []uuid.UUID
	orderCount  int
	routeCount  int
}

func newSeeder(db *persistence.Database, faker *gofakeit.Faker, opts options, log *zap.Logger) *seeder {
	tx := persistence.NewGormTransactionManager(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	purchaseRepo := persistence.NewGormPurchaseRepository(db.DB)
	events := noEvents{}

	return &seeder{
		faker:     faker,
		opts:      opts,
		log:       log,
		users:     userRepo,
		products:  catalogapp.NewProductService(productRepo, tx, events, log),
		customers: partnerapp.NewCustomerService(customerRepo, tx, events),
		suppliers: partnerapp.NewSupplierService(supplierRepo, tx, events),
		orders:    tradeapp.NewOrderService(orderRepo, productRepo, customerRepo, tx, events, log),
		purchases: tradeapp.NewPurchaseService(purchaseRepo, productRepo, supplierRepo, tx, events, log),
		payments:  financeapp.NewPaymentService(persistence.NewGormPaymentRepository(db.DB), orderRepo, purchaseRepo, tx, events, log),
		routes:    logisticsapp.NewRouteService(persistence.NewGormRouteRepository(db.DB), customerRepo, nil, tx, events, log),
	}
}

func (s *seeder) run(ctx context.Context) error {
	// the admin is created without an actor; the connection then runs as system
	exists, err := s.users.ExistsByUsername(ctx, adminUsername)
	if err != nil {
		return err
	}
	if exists {
		return errAlreadySeeded
	}
	admin, err := s.newUser(ctx, adminUsername, "Administrador", identity.RoleAdmin)
	if err != nil {
		return err
	}
	ctx = identity.WithActor(ctx, identity.Actor{UserID: admin.ID, Username: admin.Username, Role: admin.Role})

	for _, u := range staffRoles {
		user, err := s.newUser(ctx, u.username, u.fullName, u.role)
		if err != nil {
			return err
		}
		s.staff = append(s.staff, user)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"suppliers", s.seedSuppliers},
		{"products", s.seedProducts},
		{"purchases", s.seedPurchases},
		{"customers", s.seedCustomers},
		{"orders", s.seedOrders},
		{"routes", s.seedRoutes},
	}
	for _, step := range steps {
		start := time.Now()
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		s.log.Info("Seeded", zap.String("step", step.name), zap.Duration("took", time.Since(start)))
	}
	return nil
}

func (s *seeder) newUser(ctx context.Context, username, fullName string, role identity.Role) (*identity.User, error) {
	user, err := identity.NewUser(username, s.opts.Password, fullName, role)
	if err != nil {
		return nil, err
	}
	user.ClearDomainEvents()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user %s: %w", username, err)
	}
	return user, nil
}

func (s *seeder) drivers() []uuid.UUID {
	var ids []uuid.UUID
	for _, u := range s.staff {
		if u.Role == identity.RoleDriver {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func (s *seeder) seedSuppliers(ctx context.Context) error {
	for i := range s.opts.Suppliers {
		resp, err := s.suppliers.Create(ctx, partnerapp.CreateSupplierRequest{
			Code:         fmt.Sprintf("PRV-%03d", i+1),
			Name:         s.faker.Company(),
			TaxID:        "30-" + s.faker.DigitN(8) + "-" + s.faker.DigitN(1),
			Contact: partnerapp.Contact{
				ContactName: s.faker.Name(),
				Phone:       s.faker.Phone(),
				Email:       s.faker.Email(),
				Address:     s.faker.Street() + ", " + s.faker.City(),
			},
			PaymentTerms: s.faker.RandomInt([]int{0, 15, 30, 60}),
		})
		if err != nil {
			return err
		}
		s.supplierIDs = append(s.supplierIDs, resp.ID)
	}
	return nil
}

var units = []string{"unidad", "caja", "kg", "litro", "pack"}

func (s *seeder) seedProducts(ctx context.Context) error {
	for i := range s.opts.Products {
		price := decimal.NewFromFloat(s.faker.Price(200, 25000)).Round(2)
		cost := price.Mul(decimal.NewFromFloat(s.faker.Float64Range(0.55, 0.8))).Round(2)
		minStock := decimal.NewFromInt(int64(s.faker.Number(5, 30)))
		stock := decimal.NewFromInt(int64(s.faker.Number(0, 400)))
		resp, err := s.products.Create(ctx, catalogapp.CreateProductRequest{
			SKU:          fmt.Sprintf("%s-%04d", strings.ToUpper(s.faker.LetterN(3)), i+1),
			Name:         s.faker.ProductName(),
			Description:  s.faker.ProductDescription(),
			Unit:         s.faker.RandomString(units),
			Price:        price,
			Cost:         &cost,
			MinStock:     &minStock,
			InitialStock: &stock,
		})
		if err != nil {
			return err
		}
		s.productIDs = append(s.productIDs, resp.ID)
	}
	return nil
}

// seedPurchases restocks part of the catalog; some purchases stay as drafts
func (s *seeder) seedPurchases(ctx context.Context) error {
	if len(s.supplierIDs) == 0 || len(s.productIDs) == 0 {
		return nil
	}
	for i := range len(s.supplierIDs) * 2 {
		items := make([]tradeapp.PurchaseItemInput, 0, 4)
		for _, id := range s.pickProducts(s.faker.Number(1, 4)) {
			items = append(items, tradeapp.PurchaseItemInput{
				ProductID: id,
				Quantity:  decimal.NewFromInt(int64(s.faker.Number(20, 200))),
				UnitCost:  decimal.NewFromFloat(s.faker.Price(100, 15000)).Round(2),
			})
		}
		purchase, err := s.purchases.Create(ctx, tradeapp.CreatePurchaseRequest{
			SupplierID: s.supplierIDs[i%len(s.supplierIDs)],
			Items:      items,
		})
		if err != nil {
			return err
		}
		if i%3 == 2 {
			continue
		}
		if _, err := s.purchases.Receive(ctx, purchase.ID); err != nil {
			return err
		}
	}
	return nil
}

var zones = []string{"Centro", "Norte", "Sur", "Oeste", "Ruta 9"}

func (s *seeder) seedCustomers(ctx context.Context) error {
	for i := range s.opts.Customers {
		lat, _ := s.faker.LatitudeInRange(-34.75, -34.50)
		lng, _ := s.faker.LongitudeInRange(-58.60, -58.35)
		credit := decimal.NewFromInt(int64(s.faker.Number(0, 20)) * 50000)
		resp, err := s.customers.Create(ctx, partnerapp.CreateCustomerRequest{
			Code:        fmt.Sprintf("CLI-%04d", i+1),
			Name:        s.faker.Company(),
			TaxID:       "20-" + s.faker.DigitN(8) + "-" + s.faker.DigitN(1),
			Contact: partnerapp.Contact{
				ContactName: s.faker.Name(),
				Phone:       s.faker.Phone(),
				Email:       s.faker.Email(),
				Address:     s.faker.Street(),
			},
			City:        s.faker.City(),
			Zone:        s.faker.RandomString(zones),
			Latitude:    &lat,
			Longitude:   &lng,
			CreditLimit: &credit,
		})
		if err != nil {
			return err
		}
		s.customerIDs = append(s.customerIDs, resp.ID)
	}
	return nil
}

// seedOrders creates orders and walks a share of them through the
// prepare, dispatch and deliver lifecycle
func (s *seeder) seedOrders(ctx context.Context) error {
	if len(s.customerIDs) == 0 || len(s.productIDs) == 0 {
		return nil
	}
	drivers := s.drivers()
	for range s.opts.Orders {
		items := make([]tradeapp.OrderItemInput, 0, 5)
		for _, id := range s.pickProducts(s.faker.Number(1, 5)) {
			items = append(items, tradeapp.OrderItemInput{
				ProductID: id,
				Quantity:  decimal.NewFromInt(int64(s.faker.Number(1, 6))),
			})
		}
		delivery := time.Now().AddDate(0, 0, s.faker.Number(0, 7))
		order, err := s.orders.Create(ctx, tradeapp.CreateOrderRequest{
			CustomerID:   s.customerIDs[s.faker.Number(0, len(s.customerIDs)-1)],
			Items:        items,
			DeliveryDate: &delivery,
			Notes:        s.faker.Sentence(6),
		})
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				// an empty shelf is expected with random quantities
				s.log.Debug("Order skipped", zap.String("code", domainErr.Code))
				continue
			}
			return err
		}
		s.orderCount++

		if err := s.advance(ctx, order.ID, drivers); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) advance(ctx context.Context, orderID uuid.UUID, drivers []uuid.UUID) error {
	stage := s.faker.Number(0, 4)
	if stage == 0 {
		return nil
	}
	if stage == 4 {
		_, err := s.orders.Cancel(ctx, orderID, tradeapp.CancelOrderRequest{Reason: "Cliente cerrado"})
		return err
	}
	if len(drivers) > 0 {
		driver := drivers[s.faker.Number(0, len(drivers)-1)]
		if _, err := s.orders.AssignDriver(ctx, orderID, tradeapp.AssignDriverRequest{DriverID: driver}); err != nil {
			return err
		}
	}
	if _, err := s.orders.Prepare(ctx, orderID); err != nil {
		return err
	}
	if stage == 1 {
		return nil
	}
	if _, err := s.orders.Dispatch(ctx, orderID); err != nil {
		return err
	}
	if stage == 2 {
		return nil
	}
	delivered, err := s.orders.Deliver(ctx, orderID)
	if err != nil {
		return err
	}
	// most delivered orders are paid on the spot, some only in part
	paid := delivered.TotalAmount
	if s.faker.Bool() {
		paid = paid.Div(decimal.NewFromInt(2)).Round(2)
	}
	_, err = s.payments.RecordOrderPayment(ctx, orderID, financeapp.RecordPaymentRequest{
		Method: s.faker.RandomString([]string{"cash", "transfer", "card"}),
		Amount: paid,
	})
	return err
}

func (s *seeder) seedRoutes(ctx context.Context) error {
	if len(s.customerIDs) == 0 {
		return nil
	}
	drivers := s.drivers()
	for i := range s.opts.Routes {
		size := min(len(s.customerIDs), s.faker.Number(4, 10))
		ids := make([]uuid.UUID, 0, size)
		for _, idx := range s.perm(len(s.customerIDs))[:size] {
			ids = append(ids, s.customerIDs[idx])
		}
		req := logisticsapp.CreateRouteRequest{
			Name:          fmt.Sprintf("Recorrido %s %d", s.faker.RandomString(zones), i+1),
			ScheduledDate: time.Now().AddDate(0, 0, i).Truncate(24 * time.Hour),
			CustomerIDs:   ids,
		}
		if len(drivers) > 0 {
			driver := drivers[i%len(drivers)]
			req.DriverID = &driver
		}
		if _, err := s.routes.Create(ctx, req); err != nil {
			return err
		}
		s.routeCount++
	}
	return nil
}

// pickProducts returns n distinct product IDs
func (s *seeder) pickProducts(n int) []uuid.UUID {
	n = min(n, len(s.productIDs))
	out := make([]uuid.UUID, 0, n)
	for _, idx := range s.perm(len(s.productIDs))[:n] {
		out = append(out, s.productIDs[idx])
	}
	return out
}

func (s *seeder) perm(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleInts(idx)
	return idx
}
