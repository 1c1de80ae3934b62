package router

import (
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/interfaces/http/handler"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
)

// Handlers bundles every API handler. A nil handler skips its routes.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Customer *handler.CustomerHandler
	Supplier *handler.SupplierHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Purchase *handler.PurchaseHandler
	Payment  *handler.PaymentHandler
	Route    *handler.RouteHandler
	Audit    *handler.AuditHandler
	Export   *handler.ExportHandler
	Outbox   *handler.OutboxHandler
	System   *handler.SystemHandler
}

// PublicPaths are the API paths served without a bearer token
func PublicPaths(prefix string) []string {
	return []string{
		"/health",
		prefix + "/auth/login",
		prefix + "/auth/refresh",
	}
}

// DomainGroups builds the route groups of the API
func DomainGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup
	adminOnly := middleware.RequireRole(identity.RoleAdmin)

	if h.Auth != nil {
		auth := NewDomainGroup("auth", "/auth")
		auth.POST("/login", "", h.Auth.Login)
		auth.POST("/refresh", "", h.Auth.RefreshToken)
		auth.POST("/logout", "", h.Auth.Logout)
		auth.GET("/me", "", h.Auth.GetCurrentUser)
		auth.PUT("/password", "", h.Auth.ChangePassword)
		groups = append(groups, auth)
	}

	if h.User != nil {
		users := NewDomainGroup(identity.ResourceUser, "/users").Use(adminOnly)
		users.POST("", identity.ActionCreate, h.User.Create)
		users.GET("", identity.ActionRead, h.User.List)
		users.GET("/:id", identity.ActionRead, h.User.GetByID)
		users.PUT("/:id", identity.ActionUpdate, h.User.Update)
		users.PUT("/:id/role", identity.ActionUpdate, h.User.ChangeRole)
		users.POST("/:id/reset-password", identity.ActionUpdate, h.User.ResetPassword)
		users.POST("/:id/activate", identity.ActionUpdate, h.User.Activate)
		users.POST("/:id/deactivate", identity.ActionUpdate, h.User.Deactivate)
		users.DELETE("/:id", identity.ActionDelete, h.User.Delete)
		groups = append(groups, users)
	}

	if h.Customer != nil {
		customers := NewDomainGroup(identity.ResourceCustomer, "/customers")
		customers.POST("", identity.ActionCreate, h.Customer.Create)
		customers.GET("", identity.ActionRead, h.Customer.List)
		customers.GET("/:id", identity.ActionRead, h.Customer.GetByID)
		customers.PUT("/:id", identity.ActionUpdate, h.Customer.Update)
		customers.POST("/:id/activate", identity.ActionUpdate, h.Customer.Activate)
		customers.POST("/:id/deactivate", identity.ActionUpdate, h.Customer.Deactivate)
		customers.DELETE("/:id", identity.ActionDelete, h.Customer.Delete)
		groups = append(groups, customers)
	}

	if h.Supplier != nil {
		suppliers := NewDomainGroup(identity.ResourceSupplier, "/suppliers")
		suppliers.POST("", identity.ActionCreate, h.Supplier.Create)
		suppliers.GET("", identity.ActionRead, h.Supplier.List)
		suppliers.GET("/:id", identity.ActionRead, h.Supplier.GetByID)
		suppliers.PUT("/:id", identity.ActionUpdate, h.Supplier.Update)
		suppliers.POST("/:id/activate", identity.ActionUpdate, h.Supplier.Activate)
		suppliers.POST("/:id/deactivate", identity.ActionUpdate, h.Supplier.Deactivate)
		suppliers.DELETE("/:id", identity.ActionDelete, h.Supplier.Delete)
		groups = append(groups, suppliers)
	}

	if h.Product != nil {
		products := NewDomainGroup(identity.ResourceProduct, "/products")
		products.POST("", identity.ActionCreate, h.Product.Create)
		products.GET("", identity.ActionRead, h.Product.List)
		products.GET("/low-stock", identity.ActionRead, h.Product.LowStock)
		products.GET("/sku/:sku", identity.ActionRead, h.Product.GetBySKU)
		products.GET("/:id", identity.ActionRead, h.Product.GetByID)
		products.PUT("/:id", identity.ActionUpdate, h.Product.Update)
		products.POST("/:id/stock", identity.ActionUpdate, h.Product.AdjustStock)
		products.POST("/:id/activate", identity.ActionUpdate, h.Product.Activate)
		products.POST("/:id/deactivate", identity.ActionUpdate, h.Product.Deactivate)
		products.POST("/:id/discontinue", identity.ActionUpdate, h.Product.Discontinue)
		products.DELETE("/:id", identity.ActionDelete, h.Product.Delete)
		groups = append(groups, products)
	}

	if h.Order != nil {
		orders := NewDomainGroup(identity.ResourceOrder, "/orders")
		orders.POST("", identity.ActionCreate, h.Order.Create)
		orders.GET("", identity.ActionRead, h.Order.List)
		orders.GET("/number/:number", identity.ActionRead, h.Order.GetByNumber)
		orders.GET("/:id", identity.ActionRead, h.Order.GetByID)
		orders.PUT("/:id", identity.ActionUpdate, h.Order.Update)
		orders.POST("/:id/assign", identity.ActionAssign, h.Order.AssignDriver)
		orders.POST("/:id/prepare", identity.ActionPrepare, h.Order.Prepare)
		orders.POST("/:id/dispatch", identity.ActionDispatch, h.Order.Dispatch)
		orders.POST("/:id/deliver", identity.ActionDeliver, h.Order.Deliver)
		orders.POST("/:id/cancel", identity.ActionCancel, h.Order.Cancel)
		if h.Export != nil {
			orders.GET("/:id/delivery-note", identity.ActionRead, h.Export.DeliveryNote)
		}
		groups = append(groups, orders)
	}

	if h.Purchase != nil {
		purchases := NewDomainGroup(identity.ResourcePurchase, "/purchases")
		purchases.POST("", identity.ActionCreate, h.Purchase.Create)
		purchases.GET("", identity.ActionRead, h.Purchase.List)
		purchases.GET("/:id", identity.ActionRead, h.Purchase.GetByID)
		purchases.POST("/:id/receive", identity.ActionReceive, h.Purchase.Receive)
		purchases.POST("/:id/cancel", identity.ActionCancel, h.Purchase.Cancel)
		groups = append(groups, purchases)
	}

	if h.Payment != nil {
		payments := NewDomainGroup(identity.ResourcePayment, "/payments")
		payments.POST("", identity.ActionCreate, h.Payment.Record)
		payments.GET("", identity.ActionRead, h.Payment.List)
		payments.GET("/:id", identity.ActionRead, h.Payment.GetByID)

		// balances and payments nested under their order or purchase
		orderPayments := NewDomainGroup(identity.ResourcePayment, "/orders/:id")
		orderPayments.POST("/payments", identity.ActionCreate, h.Payment.RecordForOrder)
		orderPayments.GET("/balance", identity.ActionRead, h.Payment.OrderBalance)
		purchasePayments := NewDomainGroup(identity.ResourcePayment, "/purchases/:id")
		purchasePayments.POST("/payments", identity.ActionCreate, h.Payment.RecordForPurchase)
		purchasePayments.GET("/balance", identity.ActionRead, h.Payment.PurchaseBalance)
		groups = append(groups, payments, orderPayments, purchasePayments)
	}

	if h.Route != nil {
		routes := NewDomainGroup(identity.ResourceRoute, "/routes")
		routes.POST("", identity.ActionCreate, h.Route.Create)
		routes.GET("", identity.ActionRead, h.Route.List)
		routes.POST("/similar", identity.ActionRead, h.Route.Similar)
		routes.GET("/cached-path", identity.ActionRead, h.Route.CachedPath)
		routes.GET("/:id", identity.ActionRead, h.Route.GetByID)
		routes.POST("/:id/assign", identity.ActionUpdate, h.Route.AssignDriver)
		routes.PUT("/:id/path", identity.ActionUpdate, h.Route.SetPath)
		routes.POST("/:id/start", identity.ActionUpdate, h.Route.Start)
		routes.POST("/:id/complete", identity.ActionUpdate, h.Route.Complete)
		routes.DELETE("/:id", identity.ActionDelete, h.Route.Delete)
		if h.Export != nil {
			routes.GET("/:id/sheet", identity.ActionRead, h.Export.RouteSheet)
		}
		groups = append(groups, routes)
	}

	if h.Export != nil {
		exports := NewDomainGroup(identity.ResourceExport, "/exports")
		exports.GET("/:kind", identity.ActionRead, h.Export.CSV)
		groups = append(groups, exports)
	}

	if h.Audit != nil {
		audit := NewDomainGroup(identity.ResourceAudit, "/audit").Use(adminOnly)
		audit.GET("", identity.ActionRead, h.Audit.List)
		audit.GET("/:table/:id", identity.ActionRead, h.Audit.History)
		groups = append(groups, audit)
	}

	if h.System != nil || h.Outbox != nil {
		system := NewDomainGroup("system", "/system").Use(adminOnly)
		if h.System != nil {
			system.GET("/info", "", h.System.GetSystemInfo)
		}
		if h.Outbox != nil {
			outbox := system.Group("/outbox")
			outbox.GET("/stats", "", h.Outbox.GetStats)
			outbox.GET("/dead", "", h.Outbox.GetDeadLetterEntries)
			outbox.POST("/dead/retry", "", h.Outbox.RetryAllDeadEntries)
			outbox.POST("/dead/:id/retry", "", h.Outbox.RetryDeadEntry)
		}
		groups = append(groups, system)
	}

	return groups
}

// RegisterAPI registers every domain group on the router
func RegisterAPI(r *Router, h Handlers) {
	for _, g := range DomainGroups(h) {
		r.Register(g)
	}
}
