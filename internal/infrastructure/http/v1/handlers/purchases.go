package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	"melowms/internal/domain/audit"
	"melowms/internal/domain/purchases"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Purchases handles the supplier order surface.
type Purchases struct {
	purchases *purchases.Service
	audit     *audit.Service
}

// NewPurchases creates the purchases handler.
func NewPurchases(svc *purchases.Service, aud *audit.Service) *Purchases {
	return &Purchases{purchases: svc, audit: aud}
}

// List handles GET /companies/:companyId/branches/:branchId/purchases.
func (h *Purchases) List(c *gin.Context) {
	list, err := h.purchases.List(c.Request.Context(), c.Param("companyId"), c.Param("branchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET .../purchases/:purchaseId.
func (h *Purchases) Get(c *gin.Context) {
	p, err := h.purchases.Get(c.Request.Context(), c.Param("companyId"), c.Param("branchId"), c.Param("purchaseId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create handles POST .../purchases.
func (h *Purchases) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	companyID := c.Param("companyId")

	items := make([]purchases.Line, len(req.Items))
	for i, l := range req.Items {
		items[i] = purchases.Line{
			Item:      l.ItemID,
			ItemName:  l.ItemName,
			Quantity:  toQuantity(l.Quantity),
			UnitPrice: toMoney(l.UnitPrice),
			TaxAmount: toMoney(l.TaxAmount),
			TaxCode:   l.TaxCode,
		}
	}

	purchaseID, err := h.purchases.Create(ctx, purchases.CreateInput{
		CompanyID:    companyID,
		BranchID:     c.Param("branchId"),
		SupplierID:   req.SupplierID,
		SupplierName: req.SupplierName,
		Items:        items,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "purchase.create", "purchase", purchaseID, req)
	c.JSON(http.StatusCreated, dto.IDResponse{ID: purchaseID})
}

// Confirm handles POST .../purchases/:purchaseId/confirm. Stock and
// unit costs update on confirm.
func (h *Purchases) Confirm(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	purchaseID := c.Param("purchaseId")
	if err := h.purchases.Confirm(ctx, companyID, c.Param("branchId"), purchaseID); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "purchase.confirm", "purchase", purchaseID, nil)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "confirmed"})
}
