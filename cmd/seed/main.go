// Command seed fills a development database with staff users, a catalog,
// customers, suppliers, orders in every state and a few delivery routes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var opts options
	flag.IntVar(&opts.Customers, "customers", 40, "Customers to create")
	flag.IntVar(&opts.Products, "products", 60, "Products to create")
	flag.IntVar(&opts.Suppliers, "suppliers", 8, "Suppliers to create")
	flag.IntVar(&opts.Orders, "orders", 80, "Orders to create")
	flag.IntVar(&opts.Routes, "routes", 5, "Delivery routes to create")
	flag.Uint64Var(&opts.Seed, "seed", 0, "Random seed; 0 picks one")
	flag.StringVar(&opts.Password, "password", "distribuidora", "Password for every seeded user")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel("warn"))))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s := newSeeder(db, gofakeit.New(opts.Seed), opts, log)
	if err := s.run(ctx); err != nil {
		if errors.Is(err, errAlreadySeeded) {
			log.Info("Database already seeded, nothing to do")
			return
		}
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seed complete",
		zap.Int("users", len(s.staff)+1),
		zap.Int("suppliers", len(s.supplierIDs)),
		zap.Int("products", len(s.productIDs)),
		zap.Int("customers", len(s.customerIDs)),
		zap.Int("orders", s.orderCount),
		zap.Int("routes", s.routeCount),
	)
	for _, u := range s.staff {
		log.Info("Seeded login", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
}

// staffRoles lists the non-admin accounts created with fixed usernames
var staffRoles = []struct {
	username string
	fullName string
	role     identity.Role
}{
	{"vendedor", "Lucia Fernandez", identity.RoleSalesRep},
	{"chofer", "Martin Rodriguez", identity.RoleDriver},
	{"chofer2", "Diego Alvarez", identity.RoleDriver},
	{"deposito", "Sofia Gimenez", identity.RoleWarehouse},
}
