// Package v1 wires the HTTP API surface.
package v1

import (
	"github.com/gin-gonic/gin"

	"melowms/internal/core/security"
	"melowms/internal/infrastructure/http/v1/handlers"
	"melowms/internal/infrastructure/http/v1/middleware"
	"melowms/pkg/logger"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health    *handlers.Health
	Auth      *handlers.Auth
	Catalogs  *handlers.Catalogs
	Inventory *handlers.Inventory
	Stats     *handlers.Stats
	Transfers *handlers.Transfers
	Sales     *handlers.Sales
	Purchases *handlers.Purchases
	Expenses  *handlers.Expenses
	Audit     *handlers.Audit
}

// NewRouter builds the gin engine with the full middleware chain and
// route tree. Every company-scoped route passes through JWT auth and a
// per-operation policy check.
func NewRouter(log *logger.Logger, validator middleware.JWTValidator, engine *security.Engine, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Logger(log),
		middleware.ErrorHandler(),
	)

	router.GET("/health", h.Health.Check)

	api := router.Group("/api/v1")
	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("", middleware.Auth(validator))

	company := authed.Group("/companies/:companyId")
	allow := func(op string) gin.HandlerFunc { return middleware.Authorize(engine, op) }

	company.GET("", allow("catalogs.read"), h.Catalogs.GetCompany)
	company.GET("/stats", allow("stats.read"), h.Stats.Company)
	company.GET("/audit", allow("audit.read"), h.Audit.List)
	company.POST("/users", allow("users.register"), h.Auth.Register)

	company.GET("/branches", allow("catalogs.read"), h.Catalogs.ListBranches)
	company.POST("/branches", allow("catalogs.write"), h.Catalogs.CreateBranch)
	company.GET("/customers", allow("catalogs.read"), h.Catalogs.ListCustomers)
	company.POST("/customers", allow("catalogs.write"), h.Catalogs.CreateCustomer)
	company.GET("/customers/:customerId/fillables", allow("catalogs.read"), h.Catalogs.GetCustomerFillables)
	company.GET("/suppliers", allow("catalogs.read"), h.Catalogs.ListSuppliers)
	company.POST("/suppliers", allow("catalogs.write"), h.Catalogs.CreateSupplier)
	company.GET("/items", allow("catalogs.read"), h.Catalogs.ListItems)
	company.POST("/items", allow("catalogs.write"), h.Catalogs.CreateItem)

	branch := company.Group("/branches/:branchId")

	branch.GET("/stats", allow("stats.read"), h.Stats.Branch)
	branch.GET("/inventory", allow("inventory.read"), h.Inventory.List)
	branch.GET("/inventory/:itemId", allow("inventory.read"), h.Inventory.Get)

	branch.GET("/transfers", allow("transfers.read"), h.Transfers.List)
	branch.POST("/transfers", allow("transfers.create"), h.Transfers.Create)
	branch.GET("/transfers/:transferId", allow("transfers.read"), h.Transfers.Get)
	branch.POST("/transfers/:transferId/items/:itemId/accept", allow("transfers.accept"), h.Transfers.Accept)
	branch.POST("/transfers/:transferId/items/:itemId/reject", allow("transfers.reject"), h.Transfers.Reject)
	branch.POST("/transfers/:transferId/items/:itemId/restock", allow("transfers.restock"), h.Transfers.Restock)

	branch.GET("/sales", allow("sales.read"), h.Sales.List)
	branch.POST("/sales", allow("sales.write"), h.Sales.Create)
	branch.GET("/sales/:saleId", allow("sales.read"), h.Sales.Get)
	branch.POST("/sales/:saleId/confirm", allow("sales.write"), h.Sales.Confirm)
	branch.POST("/sales/:saleId/cancel", allow("sales.write"), h.Sales.Cancel)

	branch.GET("/purchases", allow("purchases.read"), h.Purchases.List)
	branch.POST("/purchases", allow("purchases.write"), h.Purchases.Create)
	branch.GET("/purchases/:purchaseId", allow("purchases.read"), h.Purchases.Get)
	branch.POST("/purchases/:purchaseId/confirm", allow("purchases.write"), h.Purchases.Confirm)

	branch.GET("/expenses", allow("expenses.read"), h.Expenses.List)
	branch.POST("/expenses", allow("expenses.write"), h.Expenses.Create)
	branch.POST("/expenses/:expenseId/approve", allow("expenses.approve"), h.Expenses.Approve)
	branch.POST("/expenses/:expenseId/revoke", allow("expenses.approve"), h.Expenses.Revoke)

	return router
}
