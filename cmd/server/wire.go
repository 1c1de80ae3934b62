package main

import (
	"context"
	"fmt"
	"io"

	auditapp "github.com/distribuidora/backend/internal/application/audit"
	catalogapp "github.com/distribuidora/backend/internal/application/catalog"
	eventapp "github.com/distribuidora/backend/internal/application/event"
	exportapp "github.com/distribuidora/backend/internal/application/export"
	financeapp "github.com/distribuidora/backend/internal/application/finance"
	identityapp "github.com/distribuidora/backend/internal/application/identity"
	logisticsapp "github.com/distribuidora/backend/internal/application/logistics"
	partnerapp "github.com/distribuidora/backend/internal/application/partner"
	tradeapp "github.com/distribuidora/backend/internal/application/trade"
	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/distribuidora/backend/internal/infrastructure/cache"
	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/distribuidora/backend/internal/infrastructure/event"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/infrastructure/persistence"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/auditlog"
	"github.com/distribuidora/backend/internal/infrastructure/printing"
	"github.com/distribuidora/backend/internal/infrastructure/storage"
	"github.com/distribuidora/backend/internal/infrastructure/telemetry"
	"github.com/distribuidora/backend/internal/interfaces/http/handler"
	"github.com/distribuidora/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// application holds the wired server components and their lifecycles
type application struct {
	log      *zap.Logger
	db       *persistence.Database
	backends *cache.Backends
	verifier *auth.Verifier
	handlers router.Handlers

	bus       *event.InMemoryEventBus
	outbox    *event.OutboxProcessor
	dbMetrics *telemetry.DBMetrics
	closers   []io.Closer
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger, meters *telemetry.MeterProvider) (*application, error) {
	app := &application{log: log}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(auditlog.New(audit.WatchedTables)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.db = db
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		LogFullSQL:      cfg.App.Env == "development",
	}, log); err != nil {
		return nil, fmt.Errorf("register db tracing: %w", err)
	}
	meter := meters.Meter(cfg.Telemetry.ServiceName)
	if app.dbMetrics, err = telemetry.RegisterDBMetrics(db.DB, meter, log); err != nil {
		return nil, fmt.Errorf("register db metrics: %w", err)
	}

	backends, err := cache.Connect(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	app.backends = backends

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if backends.Client != nil {
		blacklist = auth.NewRedisTokenBlacklist(backends.Client)
	}
	jwtService := auth.NewJWTService(cfg.JWT)
	app.verifier = auth.NewVerifier(jwtService, blacklist)

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	purchaseRepo := persistence.NewGormPurchaseRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	routeRepo := persistence.NewGormRouteRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Events are written to the outbox inside the aggregate's transaction
	serializer := event.NewEventSerializer()
	event.RegisterDomainEvents(serializer)
	recorder := event.NewOutboxWriter(outboxRepo, serializer)

	// Application services
	authService := identityapp.NewAuthService(userRepo, jwtService, app.verifier, identityapp.AuthServiceConfig{
		MaxLoginAttempts: cfg.JWT.MaxLoginAttempts,
		LockDuration:     cfg.JWT.LockDuration,
	}, log)
	userService := identityapp.NewUserService(userRepo, txManager, recorder, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	customerService := partnerapp.NewCustomerService(customerRepo, txManager, recorder)
	supplierService := partnerapp.NewSupplierService(supplierRepo, txManager, recorder)
	productService := catalogapp.NewProductService(productRepo, txManager, recorder, log)
	orderService := tradeapp.NewOrderService(orderRepo, productRepo, customerRepo, txManager, recorder, log)
	purchaseService := tradeapp.NewPurchaseService(purchaseRepo, productRepo, supplierRepo, txManager, recorder, log)
	paymentService := financeapp.NewPaymentService(paymentRepo, orderRepo, purchaseRepo, txManager, recorder, log)
	routeService := logisticsapp.NewRouteService(routeRepo, customerRepo, backends.RoutePaths, txManager, recorder, log)
	auditService := auditapp.NewService(auditRepo)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	exportService, err := app.buildExports(ctx, cfg, exportapp.Sources{
		Customers: customerRepo,
		Products:  productRepo,
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Routes:    routeRepo,
		Users:     userRepo,
	})
	if err != nil {
		return nil, err
	}

	// In-process consumers of delivered events
	app.bus = event.NewInMemoryEventBus(log)
	app.bus.Subscribe(event.NewLogHandler(log))
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create business metrics: %w", err)
	}
	app.bus.Subscribe(event.NewIdempotentHandler(businessMetrics, backends.Idempotency, shared.DefaultIdempotencyConfig(), log))

	var publisher shared.EventPublisher = app.bus
	if cfg.Event.AMQPEnabled {
		broker, err := event.DialAMQP(cfg.Event.AMQPURL, cfg.Event.AMQPExchange, serializer, log)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		app.closers = append(app.closers, broker)
		publisher = event.NewFanoutPublisher(broker, app.bus)
	}
	if cfg.Event.ProcessorEnabled {
		app.outbox = event.NewOutboxProcessor(outboxRepo, publisher, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
		}, log)
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping(ctx) },
	}
	if backends.Client != nil {
		checks["redis"] = func(ctx context.Context) error { return backends.Client.Ping(ctx).Err() }
	}

	app.handlers = router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Customer: handler.NewCustomerHandler(customerService),
		Supplier: handler.NewSupplierHandler(supplierService),
		Product:  handler.NewProductHandler(productService),
		Order:    handler.NewOrderHandler(orderService),
		Purchase: handler.NewPurchaseHandler(purchaseService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Route:    handler.NewRouteHandler(routeService),
		Audit:    handler.NewAuditHandler(auditService),
		Export:   handler.NewExportHandler(exportService),
		Outbox:   handler.NewOutboxHandler(outboxService),
		System:   handler.NewSystemHandler(version, checks),
	}
	return app, nil
}

// buildExports wires the optional PDF renderer and object store
func (app *application) buildExports(ctx context.Context, cfg *config.Config, src exportapp.Sources) (*exportapp.Service, error) {
	var documents exportapp.DocumentRenderer
	if cfg.Export.PDFEnabled {
		engine, err := printing.NewTemplateEngine()
		if err != nil {
			return nil, fmt.Errorf("load document templates: %w", err)
		}
		renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
			ExecPath:       cfg.Export.ChromePath,
			DefaultTimeout: cfg.Export.RenderTimeout,
			NoSandbox:      true,
			Logger:         app.log,
		})
		app.closers = append(app.closers, renderer)
		documents = printing.NewDocumentPrinter(engine, renderer)
	}

	var store exportapp.ObjectStore
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Storage(cfg.Storage, storage.WithLogger(app.log))
		if err != nil {
			return nil, fmt.Errorf("create object storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure export bucket: %w", err)
		}
		store = s3
	}

	return exportapp.NewService(src, documents, store, exportapp.Config{
		MaxRows:   cfg.Export.MaxRows,
		URLExpiry: cfg.Storage.PresignExpiry,
		Company: printing.Company{
			Name:    cfg.Export.CompanyName,
			TaxID:   cfg.Export.CompanyTaxID,
			Address: cfg.Export.CompanyAddress,
			Phone:   cfg.Export.CompanyPhone,
		},
	}, app.log), nil
}

func (app *application) start(ctx context.Context) error {
	if err := app.bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	if app.outbox != nil {
		if err := app.outbox.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
	}
	return nil
}

func (app *application) stop(ctx context.Context) {
	if app.outbox != nil {
		if err := app.outbox.Stop(ctx); err != nil {
			app.log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := app.bus.Stop(ctx); err != nil {
		app.log.Error("Error stopping event bus", zap.Error(err))
	}
}

// close releases connections in reverse order of acquisition
func (app *application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.log.Warn("Error closing resource", zap.Error(err))
		}
	}
	if app.dbMetrics != nil {
		app.dbMetrics.Stop()
	}
	if app.backends != nil {
		if err := app.backends.Close(); err != nil {
			app.log.Warn("Error closing redis", zap.Error(err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Error("Error closing database", zap.Error(err))
		}
	}
}
